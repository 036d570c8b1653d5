package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/compliance-cli/internal/analysis"
	"github.com/sells-group/compliance-cli/internal/document"
	"github.com/sells-group/compliance-cli/internal/framework"
	"github.com/sells-group/compliance-cli/internal/judge"
	"github.com/sells-group/compliance-cli/internal/model"
	"github.com/sells-group/compliance-cli/internal/report"
	"github.com/sells-group/compliance-cli/internal/storage"
	"github.com/sells-group/compliance-cli/internal/store"
)

// documentAnalyzer is the part of analysis.Analyzer the commands and the
// HTTP handlers depend on.
type documentAnalyzer interface {
	Analyze(ctx context.Context, doc analysis.Document) (*model.DocumentAnalysisResult, error)
	Framework() framework.Framework
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Analyze a document against a regulatory framework",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("analyze"); err != nil {
			return err
		}

		frameworkID, _ := cmd.Flags().GetString("framework")
		preset, _ := cmd.Flags().GetString("preset")
		formatName, _ := cmd.Flags().GetString("format")
		out, _ := cmd.Flags().GetString("out")
		upload, _ := cmd.Flags().GetBool("upload")
		noStore, _ := cmd.Flags().GetBool("no-store")

		format, err := report.ParseFormat(formatName)
		if err != nil {
			return err
		}

		text, err := document.NewReader(cfg.Document.PdfToTextPath).Read(ctx, args[0])
		if err != nil {
			return err
		}

		reg, err := newRegistry(*cfg)
		if err != nil {
			return err
		}
		j, err := judge.New(ctx, *cfg)
		if err != nil {
			return eris.Wrap(err, "init judge")
		}
		defer closeJudge(j)

		an, err := newEngine(*cfg, reg, j).analyzer(ctx, frameworkID, preset, analysis.WithProgress(logProgress))
		if err != nil {
			return err
		}

		var st store.Store
		if !noStore {
			st, err = store.New(ctx, cfg.Store)
			if err != nil {
				return eris.Wrap(err, "init store")
			}
			defer st.Close() //nolint:errcheck
		}

		doc := analysis.Document{Filename: filepath.Base(args[0]), Text: text}
		run, err := runAnalysis(ctx, st, an, doc)
		if err != nil {
			return err
		}

		var uploader storage.Storage
		if upload {
			uploader, err = storage.New(ctx, cfg.Storage)
			if err != nil {
				return err
			}
		}

		return exportReport(ctx, os.Stdout, run.Result, exportOptions{
			Document: doc.Filename,
			Format:   format,
			Out:      out,
		}, uploader)
	},
}

// runAnalysis analyzes doc and records the run in st. A nil st skips
// persistence; the returned run then has no ID.
func runAnalysis(ctx context.Context, st store.Store, an documentAnalyzer, doc analysis.Document) (*model.Run, error) {
	fwID := an.Framework().ID()

	if st == nil {
		res, err := an.Analyze(ctx, doc)
		if err != nil {
			return nil, eris.Wrapf(err, "analyze %s", doc.Filename)
		}
		return &model.Run{
			Document:  doc.Filename,
			Framework: fwID,
			Status:    model.RunStatusComplete,
			Result:    res,
		}, nil
	}

	run, err := st.CreateRun(ctx, doc.Filename, fwID)
	if err != nil {
		return nil, eris.Wrap(err, "create run")
	}
	if err := st.UpdateRunStatus(ctx, run.ID, model.RunStatusAnalyzing); err != nil {
		return nil, eris.Wrap(err, "update run status")
	}

	log := zap.L().With(zap.String("run_id", run.ID), zap.String("document", doc.Filename))
	log.Info("analysis started", zap.String("framework", fwID))

	res, err := an.Analyze(ctx, doc)
	if err != nil {
		// The run context may already be cancelled; the failure is still recorded.
		if ferr := st.FailRun(context.WithoutCancel(ctx), run.ID, err.Error()); ferr != nil {
			log.Warn("record run failure", zap.Error(ferr))
		}
		return nil, eris.Wrapf(err, "analyze %s", doc.Filename)
	}

	if err := st.CompleteRun(ctx, run.ID, res); err != nil {
		return nil, eris.Wrap(err, "complete run")
	}
	run.Status = model.RunStatusComplete
	run.Result = res

	log.Info("analysis stored",
		zap.Int("findings", len(res.Findings)),
		zap.Int("contradictions", len(res.Contradictions)),
	)
	return run, nil
}

// exportOptions says where a rendered report goes.
type exportOptions struct {
	Document string
	Format   report.Format
	// Out is a file path; empty writes to stdout.
	Out string
}

// exportReport renders res once and delivers it to stdout or a file, and to
// uploader when it is set.
func exportReport(ctx context.Context, stdout io.Writer, res *model.DocumentAnalysisResult, opts exportOptions, uploader storage.Storage) error {
	var buf bytes.Buffer
	if err := report.Write(&buf, res, opts.Format); err != nil {
		return err
	}

	if opts.Out == "" {
		if _, err := stdout.Write(buf.Bytes()); err != nil {
			return eris.Wrap(err, "write report")
		}
	} else {
		if err := os.WriteFile(opts.Out, buf.Bytes(), 0o644); err != nil {
			return eris.Wrapf(err, "write report %s", opts.Out)
		}
		zap.L().Info("report written", zap.String("path", opts.Out))
	}

	if uploader == nil {
		return nil
	}
	key := storage.NewKey(time.Now(), opts.Document, opts.Format.Extension())
	location, err := uploader.Put(ctx, key, bytes.NewReader(buf.Bytes()), opts.Format.ContentType())
	if err != nil {
		return err
	}
	zap.L().Info("report uploaded", zap.String("location", location))
	return nil
}

func logProgress(p analysis.Progress) error {
	zap.L().Info("chunk analyzed",
		zap.Int("completed", p.Completed),
		zap.Int("total", p.Total),
		zap.String("position", p.Position),
		zap.Int("issues", p.Issues),
		zap.Bool("failed", p.Failed),
	)
	return nil
}

func init() {
	analyzeCmd.Flags().String("framework", "", "framework id (default from config)")
	analyzeCmd.Flags().String("preset", "", "analysis preset: accuracy, balanced, comprehensive or speed")
	analyzeCmd.Flags().String("format", "text", "report format: text, json or xlsx")
	analyzeCmd.Flags().String("out", "", "write the report to this file instead of stdout")
	analyzeCmd.Flags().Bool("upload", false, "upload the report to the configured storage")
	analyzeCmd.Flags().Bool("no-store", false, "do not record the run in the store")
	rootCmd.AddCommand(analyzeCmd)
}
