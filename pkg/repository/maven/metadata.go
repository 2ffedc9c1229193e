package maven

import (
	"bytes"
	"context"
	"encoding/xml"
	"slices"
	"strings"

	"github.com/matzehuels/depresolve/pkg/artifact"
	"github.com/matzehuels/depresolve/pkg/cache"
	errs "github.com/matzehuels/depresolve/pkg/errors"
	"github.com/matzehuels/depresolve/pkg/repository"
	"github.com/matzehuels/depresolve/pkg/resolve"
	"github.com/matzehuels/depresolve/pkg/session"
	"github.com/matzehuels/depresolve/pkg/version"
)

type metadataXML struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Versioning struct {
		Latest      string   `xml:"latest"`
		Release     string   `xml:"release"`
		Versions    []string `xml:"versions>version"`
		LastUpdated string   `xml:"lastUpdated"`
	} `xml:"versioning"`
}

func parseMetadata(data []byte) (*metadataXML, error) {
	var md metadataXML
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	if err := dec.Decode(&md); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "parse maven-metadata.xml")
	}
	for i, v := range md.Versioning.Versions {
		md.Versioning.Versions[i] = strings.TrimSpace(v)
	}
	return &md, nil
}

func metadataPath(groupID, artifactID string) string {
	return strings.ReplaceAll(groupID, ".", "/") + "/" + artifactID + "/maven-metadata.xml"
}

// ResolveMetadata implements resolve.MetadataResolver. Each request yields
// one result per queried repository, in repository order.
func (c *Client) ResolveMetadata(ctx context.Context, sess *session.Session, reqs []resolve.MetadataRequest) []*resolve.MetadataResult {
	var results []*resolve.MetadataResult
	for _, req := range reqs {
		repos := sess.Remotes()
		if req.Repository != nil {
			repos = []repository.RemoteRepository{*req.Repository}
		}
		for _, repo := range repos {
			results = append(results, c.metadata(ctx, sess, req, repo))
		}
	}
	return results
}

func (c *Client) metadata(ctx context.Context, sess *session.Session, req resolve.MetadataRequest, repo repository.RemoteRepository) *resolve.MetadataResult {
	res := &resolve.MetadataResult{Request: req, Repository: repo.ID}
	if err := errs.ValidateCoordinatePart("groupId", req.GroupID); err != nil {
		res.Exception = err
		return res
	}
	if err := errs.ValidateCoordinatePart("artifactId", req.ArtifactID); err != nil {
		res.Exception = err
		return res
	}

	key := sess.Keyer().MetadataKey(repo.BaseURL(), req.GroupID, req.ArtifactID)
	data, err := c.cached(ctx, sess, repo, metadataPath(req.GroupID, req.ArtifactID), key, cache.MetadataTTL)
	if err != nil {
		res.Exception = err
		return res
	}
	md, err := parseMetadata(data)
	if err != nil {
		_ = sess.Cache().Delete(ctx, key)
		res.Exception = err
		return res
	}
	res.Versions = md.Versioning.Versions
	res.Latest = strings.TrimSpace(md.Versioning.Latest)
	res.Release = strings.TrimSpace(md.Versioning.Release)
	res.LastUpdated = strings.TrimSpace(md.Versioning.LastUpdated)
	return res
}

// collectVersions merges the versions served by repos. The returned map
// records the first repository serving each version.
func (c *Client) collectVersions(ctx context.Context, sess *session.Session, coord artifact.Coordinate,
	repos []repository.RemoteRepository) ([]string, map[string]string, []*resolve.MetadataResult) {
	var (
		versions []string
		origin   = make(map[string]string)
		results  []*resolve.MetadataResult
	)
	for _, repo := range repos {
		res := c.metadata(ctx, sess, resolve.MetadataRequest{GroupID: coord.GroupID, ArtifactID: coord.ArtifactID}, repo)
		results = append(results, res)
		if !res.IsResolved() {
			continue
		}
		for _, v := range res.Versions {
			if _, ok := origin[v]; !ok {
				origin[v] = repo.ID
				versions = append(versions, v)
			}
		}
	}
	version.Sort(versions)
	return versions, origin, results
}

// ResolveVersion implements resolve.VersionResolver. LATEST and RELEASE are
// looked up in repository metadata; other versions resolve to themselves.
func (c *Client) ResolveVersion(ctx context.Context, sess *session.Session, req resolve.VersionRequest) (*resolve.VersionResult, error) {
	res := &resolve.VersionResult{Request: req}
	v := req.Artifact.Version
	if v != resolve.Latest && v != resolve.Release {
		res.Version = v
		return res, nil
	}

	var best, bestRepo string
	for _, repo := range repositories(sess, req.Repositories) {
		md := c.metadata(ctx, sess, resolve.MetadataRequest{GroupID: req.Artifact.GroupID, ArtifactID: req.Artifact.ArtifactID}, repo)
		if !md.IsResolved() {
			res.Exceptions = append(res.Exceptions, md.Exception)
			continue
		}
		cand := md.Latest
		if v == resolve.Release {
			cand = md.Release
		}
		if cand == "" {
			cand = highest(md.Versions, v == resolve.Release)
		}
		if cand != "" && (best == "" || version.Compare(cand, best) > 0) {
			best, bestRepo = cand, repo.ID
		}
	}
	if best == "" {
		return res, lookupError(res.Exceptions, "resolve %s version of %s", v, req.Artifact.Module())
	}
	res.Version, res.Repository = best, bestRepo
	return res, nil
}

func highest(versions []string, releaseOnly bool) string {
	vs := slices.Clone(versions)
	version.Sort(vs)
	for i := len(vs) - 1; i >= 0; i-- {
		if !releaseOnly || version.IsRelease(vs[i]) {
			return vs[i]
		}
	}
	return ""
}

// ResolveVersionRange implements resolve.VersionRangeResolver. A soft
// requirement ("1.0") resolves to itself without consulting repositories.
func (c *Client) ResolveVersionRange(ctx context.Context, sess *session.Session, req resolve.VersionRangeRequest) (*resolve.VersionRangeResult, error) {
	res := &resolve.VersionRangeResult{Request: req, Repositories: make(map[string]string)}
	rng, err := version.ParseRange(req.Artifact.Version)
	if err != nil {
		return res, err
	}
	if rng.IsSoft() {
		res.Versions = []string{rng.Recommended}
		return res, nil
	}

	all, origin, mds := c.collectVersions(ctx, sess, req.Artifact, repositories(sess, req.Repositories))
	for _, md := range mds {
		if md.Exception != nil {
			res.Exceptions = append(res.Exceptions, md.Exception)
		}
	}
	res.Versions = rng.Filter(all)
	for _, v := range res.Versions {
		res.Repositories[v] = origin[v]
	}
	return res, nil
}
