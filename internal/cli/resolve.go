package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/depresolve/pkg/collect"
	errs "github.com/matzehuels/depresolve/pkg/errors"
	"github.com/matzehuels/depresolve/pkg/filter"
	"github.com/matzehuels/depresolve/pkg/graph"
	"github.com/matzehuels/depresolve/pkg/render"
	"github.com/matzehuels/depresolve/pkg/report"
	"github.com/matzehuels/depresolve/pkg/store"
	"github.com/matzehuels/depresolve/pkg/system"
	"github.com/matzehuels/depresolve/pkg/trace"
)

// Output formats.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
	formatDOT  = "dot"
	formatSVG  = "svg"
)

var formats = []string{formatText, formatJSON, formatYAML, formatDOT, formatSVG}

// outputFlags are shared by every command printing a tree.
type outputFlags struct {
	format      string
	output      string
	detailed    bool
	interactive bool
}

func (f *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.format, "format", "f", formatText, "output format: "+strings.Join(formats, ", "))
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "write to file instead of stdout")
	cmd.Flags().BoolVar(&f.detailed, "detailed", false, "include group, scope and file in dot/svg labels")
	cmd.Flags().BoolVarP(&f.interactive, "interactive", "i", false, "browse the result in a terminal UI")
}

func (f *outputFlags) validate() error {
	if !slices.Contains(formats, f.format) {
		return errs.New(errs.ErrCodeInvalidInput, "unknown format %q (want one of %s)", f.format, strings.Join(formats, ", "))
	}
	return nil
}

// resolveCommand creates the resolve command.
func (c *CLI) resolveCommand() *cobra.Command {
	var (
		out     outputFlags
		scopes  []string
		exclude []string
		strict  bool
		save    bool
	)
	cmd := &cobra.Command{
		Use:   "resolve <coordinate...|pom.xml>",
		Short: "Collect and resolve a dependency tree",
		Long: `Collect the transitive dependencies of one or more artifacts, or of a
project's pom.xml, and download every artifact into the local repository.

Coordinates have the form groupId:artifactId[:extension[:classifier]]:version.
A single coordinate is the root of the tree; several share a virtual root.

Failures are reported, not fatal: the command exits successfully with a
partial result unless --strict is given.`,
		Example: `  depresolve resolve org.slf4j:slf4j-api:2.0.13
  depresolve resolve ./pom.xml --scope compile,runtime --format json
  depresolve resolve g:a:1 g:b:2 --exclude 'org.junit:*' --save`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := out.validate(); err != nil {
				return err
			}
			ctx := cmd.Context()
			e, err := c.newEnv(ctx)
			if err != nil {
				return err
			}
			defer e.Close()
			ctx, cancel := e.withTimeout(ctx)
			defer cancel()

			creq, err := c.request(ctx, e, args)
			if err != nil {
				return err
			}
			req := system.DependencyRequest{
				CollectRequest: creq,
				Filter:         filter.Select(scopes, exclude),
				Trace:          trace.New("resolve"),
			}

			prog := newProgress(loggerFromContext(ctx))
			spin := newSpinnerWithContext(ctx, os.Stderr, "Resolving "+creq.String())
			spin.Start()
			res, err := e.sys.ResolveDependencies(ctx, e.sess, req)
			spin.Stop()
			if err != nil {
				return err
			}
			prog.done("resolved", "artifacts", len(res.Artifacts()), "unresolved", len(res.Unresolved()))

			rep := report.Build(res)
			if save {
				if err := c.save(ctx, e, rep); err != nil {
					return err
				}
			}
			if err := c.present(ctx, out, rep, res.Tree, true); err != nil {
				return err
			}
			if strict {
				return res.Err()
			}
			return nil
		},
	}
	out.register(cmd)
	cmd.Flags().StringSliceVar(&scopes, "scope", nil, "resolve only these scopes (e.g. compile,runtime)")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "skip groupId:artifactId patterns and their subtrees")
	cmd.Flags().BoolVar(&strict, "strict", false, "exit with an error if collection or resolution failed")
	cmd.Flags().BoolVar(&save, "save", false, "store the report")
	return cmd
}

// collectCommand creates the collect command.
func (c *CLI) collectCommand() *cobra.Command {
	var (
		out    outputFlags
		strict bool
	)
	cmd := &cobra.Command{
		Use:   "collect <coordinate...|pom.xml>",
		Short: "Collect a dependency tree without downloading artifacts",
		Example: `  depresolve collect org.slf4j:slf4j-api:2.0.13
  depresolve collect ./pom.xml --format dot -o deps.dot`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := out.validate(); err != nil {
				return err
			}
			ctx := cmd.Context()
			e, err := c.newEnv(ctx)
			if err != nil {
				return err
			}
			defer e.Close()
			ctx, cancel := e.withTimeout(ctx)
			defer cancel()

			creq, err := c.request(ctx, e, args)
			if err != nil {
				return err
			}
			creq.Trace = trace.New("collect")

			prog := newProgress(loggerFromContext(ctx))
			spin := newSpinnerWithContext(ctx, os.Stderr, "Collecting "+creq.String())
			spin.Start()
			res, err := e.sys.CollectDependencies(ctx, e.sess, *creq)
			spin.Stop()
			res, err = partialCollect(res, err)
			if res == nil {
				return err
			}
			if err != nil {
				c.Logger.Warn("collection incomplete", "error", err)
			}
			prog.done("collected", "nodes", res.Tree.Len(), "problems", len(res.Exceptions))

			if err := c.present(ctx, out, report.BuildCollect(res), res.Tree, false); err != nil {
				return err
			}
			if strict {
				return err
			}
			return nil
		},
	}
	out.register(cmd)
	cmd.Flags().BoolVar(&strict, "strict", false, "exit with an error if collection failed")
	return cmd
}

// partialCollect recovers the partial result carried by a collection error.
func partialCollect(res *collect.Result, err error) (*collect.Result, error) {
	if res != nil || err == nil {
		return res, err
	}
	var cerr *collect.CollectionError
	if errors.As(err, &cerr) && cerr.Result != nil {
		return cerr.Result, err
	}
	return nil, err
}

// request turns the command arguments into a collect request. A single
// argument naming a pom.xml or a directory is loaded as a project;
// everything else is parsed as coordinates.
func (c *CLI) request(ctx context.Context, e *env, args []string) (*collect.Request, error) {
	if len(args) == 1 && isProjectPath(args[0]) {
		req, err := e.client.LoadProject(ctx, e.sess, args[0])
		if err != nil {
			return nil, err
		}
		req.Context = "cli"
		return req, nil
	}
	req, err := collect.ParseRequest(args...)
	if err != nil {
		return nil, err
	}
	req.Context = "cli"
	return &req, nil
}

func isProjectPath(arg string) bool {
	if strings.HasSuffix(arg, ".xml") {
		return true
	}
	info, err := os.Stat(arg)
	return err == nil && info.IsDir()
}

func (e *env) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.cfg.Resolve.Timeout > 0 {
		return context.WithTimeout(ctx, e.cfg.Resolve.Timeout)
	}
	return context.WithCancel(ctx)
}

func (c *CLI) save(ctx context.Context, e *env, rep *report.Report) error {
	st, err := store.Open(ctx, e.cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close(ctx)
	if err := st.Save(ctx, rep); err != nil {
		return err
	}
	c.Logger.Info("report saved", "id", rep.ID)
	return nil
}

// present shows the result interactively or writes it in the selected
// format.
func (c *CLI) present(ctx context.Context, out outputFlags, rep *report.Report, t *graph.Tree, resolved bool) error {
	if out.interactive {
		_, err := tea.NewProgram(NewReportModel(rep), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
		return err
	}

	w := c.Out
	if out.output != "" {
		f, err := os.Create(out.output)
		if err != nil {
			return errs.Wrap(errs.ErrCodeInvalidPath, err, "create %s", out.output)
		}
		defer f.Close()
		w = f
	}
	if err := writeResult(ctx, w, out, rep, t, resolved); err != nil {
		return err
	}
	if out.output != "" {
		printFile(os.Stderr, out.output)
	}
	return nil
}

func writeResult(ctx context.Context, w io.Writer, out outputFlags, rep *report.Report, t *graph.Tree, resolved bool) error {
	switch out.format {
	case formatJSON:
		return report.WriteJSON(rep, w)
	case formatYAML:
		return report.WriteYAML(rep, w)
	case formatDOT, formatSVG:
		if t == nil {
			return errs.New(errs.ErrCodeInvalidInput, "no dependency tree to render")
		}
		dot := render.ToDOT(t, render.Options{Detailed: out.detailed})
		if out.format == formatDOT {
			_, err := io.WriteString(w, dot)
			return err
		}
		svg, err := render.RenderSVG(ctx, dot)
		if err != nil {
			return err
		}
		_, err = w.Write(svg)
		return err
	default:
		if t != nil {
			printTree(w, t, resolved)
		} else {
			printComponents(w, rep)
		}
		printCycles(w, rep.Cycles)
		fmt.Fprintln(w)
		printSummary(w, rep, resolved)
		return nil
	}
}
