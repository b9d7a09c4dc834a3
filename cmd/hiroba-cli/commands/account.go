package commands

import (
	"fmt"

	"hiroba-client/lib/scrapers/hiroba/parse"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(cardsCmd)
	rootCmd.AddCommand(renameCmd)
	rootCmd.AddCommand(refreshCmd)
}

func cardRows(t table.Writer, cards []parse.Card, active *parse.Card) {
	t.AppendHeader(table.Row{"", "Taiko number", "Nickname", "MyDon"})
	for _, card := range cards {
		marker := ""
		if active != nil && active.TaikoNumber == card.TaikoNumber {
			marker = "*"
		}
		t.AppendRow(table.Row{marker, card.TaikoNumber, card.Nickname, card.MyDon})
	}
}

type loginResult struct {
	Token        string      `json:"token" yaml:"token"`
	CurrentLogin *parse.Card `json:"currentLogin" yaml:"currentLogin"`
}

var loginCmd = &cobra.Command{
	Use:   "login [--card <taiko number>]",
	Short: "Logs in and prints the session token to reuse with --token.",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		res := loginResult{Token: s.Token(), CurrentLogin: s.CurrentLogin()}
		return render(cmd.OutOrStdout(), res, func(t table.Writer) {
			t.AppendHeader(table.Row{"Token", "Active card"})
			active := "-"
			if res.CurrentLogin != nil {
				active = fmt.Sprintf("%s (%s)", res.CurrentLogin.Nickname, res.CurrentLogin.TaikoNumber)
			}
			t.AppendRow(table.Row{res.Token, active})
		})
	},
}

var cardsCmd = &cobra.Command{
	Use:   "cards",
	Short: "Lists the cards linked to the account.",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		active := s.CurrentLogin()
		cards, err := s.ReloadCardList(cmd.Context())
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), cards, func(t table.Writer) {
			cardRows(t, cards, active)
		})
	},
}

var renameCmd = &cobra.Command{
	Use:   "rename <new name>",
	Short: "Renames the active card.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		err = s.ChangeName(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		current := s.CurrentLogin()
		return render(cmd.OutOrStdout(), current, func(t table.Writer) {
			if current == nil {
				return
			}
			cardRows(t, []parse.Card{*current}, current)
		})
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Asks donderhiroba to pull the active card's latest scores.",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		err = s.UpdateRecord(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "score refresh requested")
		return nil
	},
}
