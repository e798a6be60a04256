package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"db-advisor/internal/app"
	"db-advisor/internal/dto"
	"db-advisor/internal/models"
	"db-advisor/internal/service"
	"db-advisor/pkg/auth"
	"db-advisor/pkg/config"
	"db-advisor/pkg/logger"

	"github.com/spf13/cobra"
)

const questionsDescription = "Answer these questions to get personalized database recommendations"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		cancel()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "advisor-cli",
		Short:         "Database advisor - recommends databases from questionnaire answers",
		Version:       app.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(questionsCmd())
	rootCmd.AddCommand(recommendCmd())
	rootCmd.AddCommand(issueTokenCmd())

	return rootCmd
}

func questionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "questions",
		Short: "Print the questionnaire of the configured schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadEnv()
			schema, err := service.SchemaByName(cfg.Engine.Schema, cfg.Engine.RuleBonus)
			if err != nil {
				return err
			}

			resp := dto.QuestionsResponse{
				Questions:     make(map[string]string, len(schema.Questions)),
				AnswerChoices: make(map[string][]string, len(schema.Questions)),
				Description:   questionsDescription,
			}
			for _, q := range schema.Questions {
				resp.Questions[q.ID] = q.Prompt
				resp.AnswerChoices[q.ID] = append([]string{}, q.Choices...)
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
}

func recommendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Index the knowledge base and recommend databases for the given answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			answersPath, _ := cmd.Flags().GetString("answers")

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := logger.Init(cfg.Logger.Level); err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer logger.Sync()

			req, err := readRequest(cmd.InOrStdin(), answersPath)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			advisor, err := app.New(ctx, cfg, logger.Named("cli"))
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			defer advisor.Close()

			if err := advisor.Start(ctx); err != nil {
				return fmt.Errorf("startup failed: %w", err)
			}

			result, err := advisor.Recommend(ctx, models.AnswerSet(req.Answers))
			if err != nil {
				return fmt.Errorf("failed to generate recommendations: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), toResponse(result))
		},
	}

	cmd.Flags().StringP("answers", "a", "-", `JSON file with {"answers": {...}}, - reads stdin`)

	return cmd
}

func issueTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "issue-token [client]",
		Short: "Print a bearer token for /recommend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ttl, _ := cmd.Flags().GetDuration("ttl")

			cfg := config.LoadEnv()
			if cfg.Auth.SecretKey == "" {
				return errors.New("AUTH_JWT_SECRET is not set")
			}
			token, err := auth.NewJWTManager(cfg.Auth.SecretKey).GenerateToken(args[0], ttl)
			if err != nil {
				return fmt.Errorf("failed to issue token: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	cmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")

	return cmd
}

func readRequest(stdin io.Reader, path string) (*dto.RecommendRequest, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open answers: %w", err)
		}
		defer f.Close()
		r = f
	}

	var req dto.RecommendRequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return nil, fmt.Errorf("failed to decode answers: %w", err)
	}
	return &req, nil
}

func toResponse(result *models.RecommendationResult) dto.RecommendResponse {
	resp := dto.RecommendResponse{
		Recommendations: make([]dto.RecommendationResponse, 0, len(result.Recommendations)),
		QuerySummary:    result.QuerySummary,
	}
	for _, rec := range result.Recommendations {
		resp.Recommendations = append(resp.Recommendations, dto.RecommendationResponse{
			Name:        rec.Name,
			Score:       rec.Score,
			Explanation: rec.Explanation,
		})
	}
	return resp
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
