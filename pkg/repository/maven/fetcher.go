package maven

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/matzehuels/depresolve/pkg/artifact"
	"github.com/matzehuels/depresolve/pkg/cache"
	errs "github.com/matzehuels/depresolve/pkg/errors"
	"github.com/matzehuels/depresolve/pkg/repository"
	"github.com/matzehuels/depresolve/pkg/session"
)

// Download implements resolve.Fetcher. The artifact is verified against the
// repository's .sha1 file when one exists and stored in local.
func (c *Client) Download(ctx context.Context, sess *session.Session, repo repository.RemoteRepository,
	coord artifact.Coordinate, local *repository.LocalManager) (*artifact.Artifact, error) {
	data, err := c.get(ctx, sess, repo, coord.Path())
	if err != nil {
		return nil, err
	}

	sum, err := c.get(ctx, sess, repo, coord.Path()+".sha1")
	switch {
	case err == nil:
		if err := verifySHA1(data, sum); err != nil {
			return nil, errs.Wrap(errs.ErrCodeResolution, err, "%s from %s", coord, repo.ID)
		}
	case errors.Is(err, cache.ErrNotFound):
		sess.Logger().Debug("no checksum", "artifact", coord, "repository", repo.ID)
	default:
		return nil, err
	}

	a, err := local.Add(coord, bytes.NewReader(data))
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInstall, err, "store %s", coord)
	}
	if a.Properties == nil {
		a.Properties = make(map[string]string)
	}
	a.Properties["repository"] = repo.ID
	return a, nil
}

// verifySHA1 checks data against a .sha1 file body, which holds the hex
// digest optionally followed by a file name.
func verifySHA1(data, sumFile []byte) error {
	fields := strings.Fields(string(sumFile))
	if len(fields) == 0 {
		return errors.New("empty checksum file")
	}
	sum := sha1.Sum(data)
	got := hex.EncodeToString(sum[:])
	if !strings.EqualFold(fields[0], got) {
		return errors.New("checksum mismatch: want " + fields[0] + ", got " + got)
	}
	return nil
}
