package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/box1bs/spyglass/internal/app/searcher"
	"github.com/box1bs/spyglass/internal/logo"
	"github.com/box1bs/spyglass/internal/model"
	srv "github.com/box1bs/spyglass/internal/server"
	"github.com/box1bs/spyglass/pkg/logger"
	"github.com/spf13/cobra"
)

func crawlCMD(cfgPath *string) *cobra.Command {
	var threshold int
	crawl := &cobra.Command{
		Use:   "crawl <base-url>",
		Short: "Crawl breadth-first from base-url and index the pages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(*cfgPath)
			if err != nil {
				return err
			}
			defer a.close()
			if threshold <= 0 {
				threshold = a.cfg.Crawler.Threshold
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			start := time.Now()
			indexed, err := a.crawler().Discover(ctx, args[0], threshold)
			if errors.Is(err, model.ErrNotInitialized) {
				a.log.Write(logger.NewMessage(logger.MAIN_LAYER, logger.CRITICAL_ERROR, "index store is not initialized: %v", err))
				return err
			}
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			out := cmd.OutOrStdout()
			for _, u := range indexed {
				fmt.Fprintln(out, u)
			}
			if err != nil {
				fmt.Fprintln(out, "--Interrupted--")
			}
			fmt.Fprintf(out, "--Indexed %d pages in %v--\n", len(indexed), time.Since(start))
			return nil
		},
	}
	crawl.Flags().IntVarP(&threshold, "threshold", "t", 0, "number of pages to index (config crawler.threshold when 0)")
	return crawl
}

func searchCMD(cfgPath *string) *cobra.Command {
	var limit int
	search := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the index; without a query, read queries from stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(*cfgPath)
			if err != nil {
				return err
			}
			defer a.close()
			if limit <= 0 {
				limit = a.cfg.Search.DefaultLimit
			}
			s := a.searcher()
			out := cmd.OutOrStdout()

			if len(args) > 0 {
				return runQuery(out, s, strings.Join(args, " "), limit)
			}

			fmt.Fprintln(out, "Enter search queries (q to exit):")
			reader := bufio.NewReader(cmd.InOrStdin())
			for {
				fmt.Fprint(out, "> ")
				query, err := reader.ReadString('\n')
				query = strings.TrimSpace(query)
				if query == "q" || (err != nil && query == "") {
					return nil
				}
				if query == "" {
					continue
				}
				if err := runQuery(out, s, query, limit); err != nil {
					return err
				}
			}
		},
	}
	search.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of results (config search.default_limit when 0)")
	return search
}

func runQuery(w io.Writer, s *searcher.Searcher, query string, limit int) error {
	t := time.Now()
	hits, err := s.Query(query, limit)
	if err != nil {
		return err
	}
	present(w, hits)
	fmt.Fprintf(w, "--Search time: %v--\n", time.Since(t))
	return nil
}

func present(w io.Writer, hits []*searcher.Hit) {
	if len(hits) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "Found %d results:\n", len(hits))
	for i, hit := range hits {
		keywords := make([]string, 0, len(hit.Keywords))
		for _, k := range hit.Keywords {
			keywords = append(keywords, fmt.Sprintf("%s %d", k.Stem, k.Frequency))
		}
		fmt.Fprintf(w, "%d. %.4f %s\n   URL: %s\n   %s, %d bytes\n   %s\n",
			i+1, hit.Score, hit.Document.Title, hit.Document.URL,
			hit.Document.LastModified.Format("2006-01-02 15:04:05"), hit.Document.Size,
			strings.Join(keywords, "; "))
		for _, p := range hit.Parents {
			fmt.Fprintf(w, "   parent: %s\n", p)
		}
		for _, c := range hit.Children {
			fmt.Fprintf(w, "   child: %s\n", c)
		}
		fmt.Fprintln(w)
	}
}

func serveCMD(cfgPath *string) *cobra.Command {
	var port int
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and search page",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(*cfgPath)
			if err != nil {
				return err
			}
			defer a.close()
			if port > 0 {
				a.cfg.Server.Port = port
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logo.PrintLogo(cmd.OutOrStdout(), a.cfg.Server.Port)
			err = srv.NewServer(a.cfg, a.repo, a.log, a.metrics).Start(ctx)
			a.log.Write(logger.NewMessage(logger.MAIN_LAYER, logger.INFO, "server stopped: %v", err))
			return err
		},
	}
	serve.Flags().IntVarP(&port, "port", "p", 0, "listen port (config server.port when 0)")
	return serve
}

func reportCMD(cfgPath *string) *cobra.Command {
	var (
		limit  int
		output string
	)
	report := &cobra.Command{
		Use:   "report",
		Short: "Write a summary of the indexed documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(*cfgPath)
			if err != nil {
				return err
			}
			defer a.close()

			w := cmd.OutOrStdout()
			if output != "" {
				file, err := os.Create(output)
				if err != nil {
					return err
				}
				defer file.Close()
				w = file
			}
			return a.searcher().Report(w, limit)
		},
	}
	report.Flags().IntVarP(&limit, "limit", "n", 30, "number of documents to include (all when 0)")
	report.Flags().StringVarP(&output, "out", "o", "", "output file (stdout when empty)")
	return report
}

func statsCMD(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print document and vocabulary counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(*cfgPath)
			if err != nil {
				return err
			}
			defer a.close()

			docs, err := a.repo.GetDocumentsCount()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "documents: %d\n", docs)
			for _, ns := range model.Namespaces {
				size, err := a.repo.VocabularySize(ns)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s stems: %d\n", ns, size)
			}
			return nil
		},
	}
}
