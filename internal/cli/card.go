package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/yinkun-ui/yinkun/internal/cardconfig"
	"github.com/yinkun-ui/yinkun/pkg/types"
)

func newCardCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "card",
		Short: "Read and edit stored card configurations",
	}
	cmd.AddCommand(
		newCardGetCmd(a),
		newCardSetCmd(a),
		newCardListCmd(a),
		newCardDeleteCmd(a),
		newCardHistoryCmd(a),
	)
	return cmd
}

// withCards opens the card store for the duration of fn.
func (a *app) withCards(cmd *cobra.Command, fn func(*cardconfig.Store, types.Storage) error) (err error) {
	store, st, err := openCardStorage(a.cfg, a.commandLogger(cmd))
	if err != nil {
		return sysError(fmt.Errorf("open storage: %w", err))
	}
	defer func() {
		if cerr := st.Close(); cerr != nil && err == nil {
			err = sysError(fmt.Errorf("close storage: %w", cerr))
		}
	}()
	return fn(store, st)
}

func newCardGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get [card-id]",
		Short: "Print one card configuration, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var cardID string
			if len(args) == 1 {
				cardID = args[0]
			}
			return a.withCards(cmd, func(s *cardconfig.Store, _ types.Storage) error {
				res, err := s.Get(cmd.Context(), cardID)
				if err != nil {
					return sysError(err)
				}
				if a.jsonMode {
					return printJSON(cmd.OutOrStdout(), res.Body())
				}
				if !res.IsSingle() {
					return printJSON(cmd.OutOrStdout(), res.Configs)
				}
				if res.Config == nil {
					return userError(fmt.Errorf("card %q not found", cardID))
				}
				return printJSON(cmd.OutOrStdout(), res.Config)
			})
		},
	}
}

// offlineEditNote warns that card edits bypass a running server's cache.
const offlineEditNote = "Edits go straight to the data directory. A running \"yinkun serve\" on the same\n" +
	"data directory keeps its own copy of the table and overwrites this change on\n" +
	"its next write; stop the server first."

const (
	cardSetLong    = "Replace the configuration of a card with a JSON object given inline or on stdin (\"-\").\n\n" + offlineEditNote
	cardDeleteLong = "Delete the configuration of a card.\n\n" + offlineEditNote
)

func newCardSetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <card-id> <json|->",
		Short: "Replace a card configuration",
		Long:  cardSetLong,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cardID := args[0]
			raw, err := readJSONArg(cmd.InOrStdin(), args[1])
			if err != nil {
				return userError(err)
			}
			var config any
			if err := types.UnmarshalJSON(raw, &config); err != nil {
				return userError(fmt.Errorf("parse config: %w", err))
			}

			return a.withCards(cmd, func(s *cardconfig.Store, _ types.Storage) error {
				res, err := s.Upsert(cmd.Context(), cardID, config)
				if err != nil {
					if types.IsValidation(err) {
						return userError(err)
					}
					return sysError(err)
				}
				if a.jsonMode {
					return printJSON(cmd.OutOrStdout(), res)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", res.CardID)
				return nil
			})
		},
	}
}

func newCardListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored card ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withCards(cmd, func(s *cardconfig.Store, _ types.Storage) error {
				table, err := s.Table(cmd.Context())
				if err != nil {
					return sysError(err)
				}
				ids := make([]string, 0, len(table))
				for id := range table {
					ids = append(ids, id)
				}
				slices.Sort(ids)

				if a.jsonMode {
					return printJSON(cmd.OutOrStdout(), ids)
				}
				for _, id := range ids {
					fmt.Fprintln(cmd.OutOrStdout(), id)
				}
				return nil
			})
		},
	}
}

func newCardDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <card-id>",
		Short: "Delete a card configuration",
		Long:  cardDeleteLong,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cardID := args[0]
			return a.withCards(cmd, func(s *cardconfig.Store, _ types.Storage) error {
				existed, err := s.Delete(cmd.Context(), cardID)
				if err != nil {
					if types.IsValidation(err) {
						return userError(err)
					}
					return sysError(err)
				}
				if !existed {
					return userError(fmt.Errorf("card %q not found", cardID))
				}
				if a.jsonMode {
					return printJSON(cmd.OutOrStdout(), map[string]any{"ok": true, "cardId": cardID})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", cardID)
				return nil
			})
		},
	}
}

func newCardHistoryCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show previous versions of the card table (sqlite backend)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withCards(cmd, func(_ *cardconfig.Store, st types.Storage) error {
				h, ok := st.(types.Historian)
				if !ok {
					return userError(errors.New("history requires the sqlite backend"))
				}
				entries, err := h.History(cmd.Context(), limit)
				if err != nil {
					return sysError(err)
				}
				if a.jsonMode {
					return printJSON(cmd.OutOrStdout(), entries)
				}
				for _, e := range entries {
					fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %d cards\n",
						e.ReplacedAt.Format(time.RFC3339), e.HistoryID, len(e.Data))
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum entries to show (0 for all)")
	return cmd
}

// readJSONArg returns arg, or stdin when arg is "-".
func readJSONArg(stdin io.Reader, arg string) ([]byte, error) {
	if arg != "-" {
		return []byte(arg), nil
	}
	if stdin == nil {
		stdin = os.Stdin
	}
	raw, err := io.ReadAll(stdin)
	if err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	if strings.TrimSpace(string(raw)) == "" {
		return nil, errors.New("empty input on stdin")
	}
	return raw, nil
}

func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return sysError(fmt.Errorf("marshal JSON: %w", err))
	}
	fmt.Fprintln(w, string(out))
	return nil
}
