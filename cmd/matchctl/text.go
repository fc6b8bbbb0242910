package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/ats"
	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/chunker"
	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/embedding"
	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/skills"
)

var (
	resumePath string
	jobPath    string
	userSkills string
	semantic   bool
	inputPath  string
	source     string
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a résumé against a job description",
	RunE: func(cmd *cobra.Command, _ []string) error {
		resume, err := readInput(resumePath)
		if err != nil {
			return err
		}
		job, err := readInput(jobPath)
		if err != nil {
			return err
		}
		a, err := analyzers()
		if err != nil {
			return err
		}

		in := ats.Input{Resume: resume, Job: job, UserSkills: splitList(userSkills)}
		if semantic {
			h, err := model()
			if err != nil {
				return err
			}
			sim, err := embedding.Similarity(commandContext(cmd), h, resume, job, cfg.Embedding.SimilarityInputLimit)
			if err != nil {
				slog.Warn("similarity unavailable, using neutral semantic score", "error", err)
			} else {
				in.SemanticSimilarity = &sim
			}
		}
		return printJSON(cmd.OutOrStdout(), a.Scorer.Score(in))
	},
}

var keywordsCmd = &cobra.Command{
	Use:   "keywords",
	Short: "Extract ranked keywords from a text",
	RunE: func(cmd *cobra.Command, _ []string) error {
		text, err := readInput(inputPath)
		if err != nil {
			return err
		}
		a, err := analyzers()
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), a.Keywords.Extract(text))
	},
}

var skillsCmd = &cobra.Command{
	Use:   "skills",
	Short: "Extract taxonomy skills from a text, grouped by category",
	RunE: func(cmd *cobra.Command, _ []string) error {
		text, err := readInput(inputPath)
		if err != nil {
			return err
		}
		a, err := analyzers()
		if err != nil {
			return err
		}
		records := skills.Merge(a.Skills.Extract(text, source))
		return printJSON(cmd.OutOrStdout(), skills.ByCategory(records))
	},
}

var gapCmd = &cobra.Command{
	Use:   "gap",
	Short: "List skills a job asks for that are not among --skills",
	RunE: func(cmd *cobra.Command, _ []string) error {
		job, err := readInput(jobPath)
		if err != nil {
			return err
		}
		a, err := analyzers()
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), a.Skills.Gap(splitList(userSkills), job))
	},
}

var chunkCmd = &cobra.Command{
	Use:   "chunk",
	Short: "Show how a text is split before embedding",
	RunE: func(cmd *cobra.Command, _ []string) error {
		text, err := readInput(inputPath)
		if err != nil {
			return err
		}
		c := chunker.New(chunker.WithSize(cfg.Chunking.Size), chunker.WithOverlap(cfg.Chunking.Overlap))
		for i, chunk := range c.Split(text) {
			fmt.Fprintf(cmd.OutOrStdout(), "--- chunk %d (%d chars)\n%s\n", i, len([]rune(chunk)), chunk)
		}
		return nil
	},
}

func init() {
	scoreCmd.Flags().StringVar(&resumePath, "resume", "", "résumé text file, - for stdin")
	scoreCmd.Flags().StringVar(&jobPath, "job", "", "job description file")
	scoreCmd.Flags().StringVar(&userSkills, "skills", "", "comma separated skills the candidate claims")
	scoreCmd.Flags().BoolVar(&semantic, "semantic", false, "embed both texts for the semantic sub-score")
	_ = scoreCmd.MarkFlagRequired("resume")
	_ = scoreCmd.MarkFlagRequired("job")

	keywordsCmd.Flags().StringVarP(&inputPath, "file", "f", "-", "input text file, - for stdin")

	skillsCmd.Flags().StringVarP(&inputPath, "file", "f", "-", "input text file, - for stdin")
	skillsCmd.Flags().StringVar(&source, "source", skills.SourceResume, "source tag for extracted skills")

	gapCmd.Flags().StringVar(&jobPath, "job", "", "job description file")
	gapCmd.Flags().StringVar(&userSkills, "skills", "", "comma separated skills the candidate has")
	_ = gapCmd.MarkFlagRequired("job")

	chunkCmd.Flags().StringVarP(&inputPath, "file", "f", "-", "input text file, - for stdin")

	rootCmd.AddCommand(scoreCmd, keywordsCmd, skillsCmd, gapCmd, chunkCmd)
}
