package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"blink/internal/catalog"
	"blink/internal/config"
	"blink/internal/domain"
	"blink/internal/intent"
	"blink/internal/menu"
)

const requestTimeout = 20 * time.Second

func turnCmd(cfg *config.CLIConfig) *cobra.Command {
	var sessionID, channel, userID string
	cmd := &cobra.Command{
		Use:   "turn <utterance...>",
		Short: "Send one utterance to the server",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newServerClient(cfg.ServerURL)
			res, err := client.turn(cmd.Context(), domain.TurnRequest{
				SessionID: sessionID,
				Utterance: strings.Join(args, " "),
				Channel:   channel,
				UserID:    userID,
			})
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTurn(res))
			return nil
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "session id (server assigns one when empty)")
	cmd.Flags().StringVar(&channel, "channel", "cli", "channel tag")
	cmd.Flags().StringVar(&userID, "user", "", "caller id")
	return cmd
}

func chatCmd(cfg *config.CLIConfig) *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive session, one utterance per line",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if sessionID == "" {
				sessionID = uuid.NewString()
			}
			client := newServerClient(cfg.ServerURL)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "session %s (empty line or ctrl-d to quit)\n", sessionID)

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(out, "> ")
				if !scanner.Scan() {
					return scanner.Err()
				}
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					return nil
				}
				res, err := client.turn(cmd.Context(), domain.TurnRequest{SessionID: sessionID, Utterance: line, Channel: "cli"})
				if err != nil {
					fmt.Fprintln(os.Stderr, renderError(err))
					continue
				}
				fmt.Fprint(out, renderTurn(res))
				if res.SessionDone && res.State == domain.StateEnded {
					return nil
				}
			}
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "resume an existing session")
	return cmd
}

func sessionCmd(cfg *config.CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "session <id>",
		Short: "Show a live session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := newServerClient(cfg.ServerURL).session(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderSummary(args[0], summary))
			return nil
		},
	}
}

func validateCmd(cfg *config.CLIConfig) *cobra.Command {
	var threshold, margin float64
	var classify bool
	cmd := &cobra.Command{
		Use:   "validate <utterance...>",
		Short: "Match item mentions against the local menu",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.Load(cfg.CatalogPath)
			if err != nil {
				return err
			}
			def := menu.DefaultConfig()
			if threshold > 0 {
				def.Threshold = threshold
			}
			if margin >= 0 {
				def.Margin = margin
			}
			validator := menu.NewValidator(cat, def)

			text := strings.Join(args, " ")
			out := cmd.OutOrStdout()
			mentions := intent.SplitMentions(text)
			if classify {
				res, _ := intent.NewRulesClassifier(validator).Classify(cmd.Context(), text, nil)
				fmt.Fprint(out, renderIntent(res))
				if len(res.Entities.ItemMentions) > 0 {
					mentions = res.Entities.ItemMentions
				}
			}
			fmt.Fprint(out, renderValidation(validator.Validate(mentions)))
			return nil
		},
	}
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "match threshold (default from validator)")
	cmd.Flags().Float64Var(&margin, "margin", -1, "required lead over the runner-up")
	cmd.Flags().BoolVar(&classify, "classify", true, "also run the offline intent rules")
	return cmd
}

func menuCmd(cfg *config.CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "List the local menu catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, err := catalog.Load(cfg.CatalogPath)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderMenu(cat))
			return nil
		},
	}
}

type serverClient struct {
	baseURL string
	client  *http.Client
}

func newServerClient(baseURL string) *serverClient {
	return &serverClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: requestTimeout},
	}
}

func (c *serverClient) turn(ctx context.Context, req domain.TurnRequest) (domain.TurnResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return domain.TurnResult{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/turn", bytes.NewReader(body))
	if err != nil {
		return domain.TurnResult{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return domain.TurnResult{}, err
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)

	var res domain.TurnResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return domain.TurnResult{}, fmt.Errorf("server status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if resp.StatusCode == http.StatusServiceUnavailable {
		return res, fmt.Errorf("server unavailable: %s", res.Reply)
	}
	if resp.StatusCode >= 300 {
		return domain.TurnResult{}, fmt.Errorf("server status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return res, nil
}

var errSessionNotFound = errors.New("session not found")

func (c *serverClient) session(ctx context.Context, id string) (domain.SessionSummary, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/sessions/"+id, nil)
	if err != nil {
		return domain.SessionSummary{}, err
	}
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return domain.SessionSummary{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return domain.SessionSummary{}, errSessionNotFound
	}
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return domain.SessionSummary{}, fmt.Errorf("server status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	var body struct {
		Summary domain.SessionSummary `json:"summary"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return domain.SessionSummary{}, err
	}
	return body.Summary, nil
}
