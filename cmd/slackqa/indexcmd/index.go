package indexcmd

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/quailyquaily/slackqa/internal/config"
	"github.com/quailyquaily/slackqa/internal/configutil"
	"github.com/quailyquaily/slackqa/internal/retrieval"
	"github.com/spf13/cobra"
)

type Dependencies struct {
	LoadConfig func(cmd *cobra.Command) (*config.Config, error)
	NewLogger  func(cfg *config.Config) (*slog.Logger, error)
}

func NewCommand(d Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index <path>...",
		Short: "Load .txt, .md and .pdf files into the document store",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if d.LoadConfig == nil || d.NewLogger == nil {
				return fmt.Errorf("index command dependencies missing")
			}
			cfg, err := d.LoadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := d.NewLogger(cfg)
			if err != nil {
				return err
			}
			storePath := strings.TrimSpace(configutil.FlagOrViperString(cmd, "store", config.KeyDocumentStorePath))
			if storePath == "" {
				storePath = cfg.DocumentStorePath
			}
			chunkSize, _ := cmd.Flags().GetInt("chunk-size")

			files, err := collectFiles(args)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return fmt.Errorf("no supported files found (want .txt, .md, .pdf)")
			}

			store, err := retrieval.Open(storePath)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			total := 0
			for _, path := range files {
				docs, err := retrieval.LoadFile(path, chunkSize)
				if err != nil {
					logger.Warn("index_file_error", "path", path, "error", err.Error())
					continue
				}
				removed, err := store.ReplaceSource(ctx, path, docs...)
				if err != nil {
					return err
				}
				total += len(docs)
				logger.Info("index_file", "path", path, "chunks", len(docs), "replaced", removed)
			}
			count, err := store.Count()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "indexed %d chunks from %d files into %s (%d documents total)\n", total, len(files), storePath, count)
			return err
		},
	}
	cmd.Flags().String("store", "", "Document store path (overrides DOCUMENT_STORE_PATH).")
	cmd.Flags().Int("chunk-size", retrieval.DefaultChunkSize, "Maximum runes per document chunk.")
	return cmd
}

// collectFiles expands directories and keeps supported files in argument
// and walk order.
func collectFiles(args []string) ([]string, error) {
	var out []string
	seen := map[string]bool{}
	add := func(path string) {
		if retrieval.SupportedExt(path) && !seen[path] {
			seen[path] = true
			out = append(out, path)
		}
	}
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			add(arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
