package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/embedding"
	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/retriever"
	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/vectorindex"
	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/logger"
	pkgredis "github.com/Adithya-Monish-Kumar-K/careermatch/pkg/redis"
)

var (
	ownerID string
	topK    int
)

// openStore opens the configured vector store and embedding model. The
// returned close func releases the store.
func openStore(cmd *cobra.Command) (vectorindex.Store, *embedding.Handle, func(), error) {
	h, err := model()
	if err != nil {
		return nil, nil, nil, err
	}
	store, err := vectorindex.Open(commandContext(cmd), cfg, nil)
	if err != nil {
		return nil, nil, nil, err
	}
	return store, h, func() { store.Close() }, nil
}

var indexCmd = &cobra.Command{
	Use:   "index {resume|linkedin|github}",
	Short: "Replace an owner's chunks for one source",
	Long: "Reads the source from --file. Résumé and profile input is plain text; " +
		"repository input is a JSON array of repositories.",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(indexer.SourceResume), string(indexer.SourceLinkedIn), string(indexer.SourceGitHub)},
	RunE: func(cmd *cobra.Command, args []string) error {
		src := indexer.SourceKind(args[0])
		if !src.Valid() {
			return fmt.Errorf("unknown source %q", args[0])
		}
		text, err := readInput(inputPath)
		if err != nil {
			return err
		}

		event := indexer.ProfileUpdateEvent{OwnerID: ownerID, Source: src, Text: text}
		if src == indexer.SourceGitHub {
			event.Text = ""
			if err := json.Unmarshal([]byte(text), &event.Repositories); err != nil {
				return fmt.Errorf("decoding repositories: %w", err)
			}
		}

		store, h, closeStore, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		engine := indexer.NewEngine(h, store, cfg.Chunking, cfg.Retrieval.Collections, nil)
		ctx := logger.WithOwner(commandContext(cmd), ownerID)
		n, err := engine.Apply(ctx, event)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "indexed %d %s chunks for owner %s\n", n, src, ownerID)
		return nil
	},
}

var contextCmd = &cobra.Command{
	Use:   "context QUERY",
	Short: "Retrieve the owner's most relevant chunks for a query",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, h, closeStore, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		r := retriever.New(h, store, cfg.Retrieval, nil)
		res, err := r.Retrieve(logger.WithOwner(commandContext(cmd), ownerID), ownerID, args[0], topK)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the embedding cache",
}

var cacheFlushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Delete every cached embedding vector from Redis",
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := pkgredis.NewClient(commandContext(cmd), cfg.Redis)
		if err != nil {
			return err
		}
		defer client.Close()
		n, err := embedding.FlushCache(commandContext(cmd), client)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d cached vectors\n", n)
		return nil
	},
}

func init() {
	indexCmd.Flags().StringVar(&ownerID, "owner", "", "owner id")
	indexCmd.Flags().StringVarP(&inputPath, "file", "f", "-", "input file, - for stdin")
	_ = indexCmd.MarkFlagRequired("owner")

	contextCmd.Flags().StringVar(&ownerID, "owner", "", "owner id")
	contextCmd.Flags().IntVarP(&topK, "top-k", "k", retriever.DefaultTopK, "chunks per source")
	_ = contextCmd.MarkFlagRequired("owner")

	cacheCmd.AddCommand(cacheFlushCmd)
	rootCmd.AddCommand(indexCmd, contextCmd, cacheCmd)
}
