package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kairoscope/internal/core/domain"
)

var (
	deckDiscipline string
	deckBlock      string
	deckColor      string
	deckCards      int
	deckJSON       bool
	deckForce      bool
)

var deckCmd = &cobra.Command{
	Use:   "deck",
	Short: "Generate and manage strategy decks",
}

var deckGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new deck",
	Long: `Retrieves inspiration for a discipline and creative block, asks the LLM
for oblique strategies and saves them as a named deck.

Example:
  kairoscope deck generate --discipline "ilustración" --block "todo me parece repetido"`,
	Args: cobra.NoArgs,
	RunE: runDeckGenerate,
}

var deckListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your decks",
	Args:  cobra.NoArgs,
	RunE:  runDeckList,
}

var deckShowCmd = &cobra.Command{
	Use:   "show [deck-id]",
	Short: "Show a deck and its cards",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeckShow,
}

var deckDeleteCmd = &cobra.Command{
	Use:   "delete [deck-id]",
	Short: "Delete a deck",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeckDelete,
}

func init() {
	deckGenerateCmd.Flags().StringVar(&deckDiscipline, "discipline", "", "creative discipline (required)")
	deckGenerateCmd.Flags().StringVar(&deckBlock, "block", "", "description of the creative block (required)")
	deckGenerateCmd.Flags().StringVar(&deckColor, "color", domain.DefaultDeckColor, "deck colour as #RRGGBB")
	deckGenerateCmd.Flags().IntVar(&deckCards, "cards", 0, "maximum cards (default from settings)")
	deckGenerateCmd.Flags().BoolVar(&deckJSON, "json", false, "output the deck as JSON")
	deckListCmd.Flags().BoolVar(&deckJSON, "json", false, "output decks as JSON")
	deckShowCmd.Flags().BoolVar(&deckJSON, "json", false, "output the deck as JSON")
	deckDeleteCmd.Flags().BoolVarP(&deckForce, "force", "f", false, "delete without confirmation")

	deckCmd.AddCommand(deckGenerateCmd)
	deckCmd.AddCommand(deckListCmd)
	deckCmd.AddCommand(deckShowCmd)
	deckCmd.AddCommand(deckDeleteCmd)
	rootCmd.AddCommand(deckCmd)
}

type deckJSONOutput struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Owner            string    `json:"owner"`
	Discipline       string    `json:"discipline"`
	BlockDescription string    `json:"block_description"`
	Color            string    `json:"color"`
	CreatedAt        time.Time `json:"created_at"`
	Cards            []string  `json:"cards,omitempty"`
}

func toDeckJSON(d *domain.Deck) deckJSONOutput {
	out := deckJSONOutput{
		ID:               d.ID,
		Name:             d.Name,
		Owner:            d.Owner,
		Discipline:       d.Discipline,
		BlockDescription: d.BlockDescription,
		Color:            d.Color,
		CreatedAt:        d.CreatedAt,
	}
	for _, c := range d.Cards {
		out.Cards = append(out.Cards, c.Text)
	}
	return out
}

func runDeckGenerate(cmd *cobra.Command, _ []string) error {
	if deckService == nil {
		return errors.New("deck service not configured")
	}
	if err := requireIndex(cmd); err != nil {
		return err
	}

	cmd.PrintErrln("Generating deck...")
	deck, err := deckService.Generate(cmd.Context(), domain.DeckRequest{
		Owner:            owner,
		Discipline:       deckDiscipline,
		BlockDescription: deckBlock,
		Color:            deckColor,
		NumCards:         deckCards,
	})
	if err != nil {
		return fmt.Errorf("deck generation failed: %w", err)
	}

	if deckJSON {
		return printJSON(cmd, toDeckJSON(deck))
	}
	printDeck(cmd, deck)
	return nil
}

func runDeckList(cmd *cobra.Command, _ []string) error {
	if deckService == nil {
		return errors.New("deck service not configured")
	}

	decks, err := deckService.List(cmd.Context(), owner)
	if err != nil {
		return fmt.Errorf("failed to list decks: %w", err)
	}

	if deckJSON {
		out := make([]deckJSONOutput, len(decks))
		for i := range decks {
			out[i] = toDeckJSON(&decks[i])
		}
		return printJSON(cmd, out)
	}

	if len(decks) == 0 {
		cmd.Println("No decks yet. Run 'kairoscope deck generate' to create one.")
		return nil
	}
	for _, d := range decks {
		cmd.Printf("  %s  %-30s %s  %s\n", d.ID, d.Name, d.Discipline, d.CreatedAt.Local().Format(time.DateOnly))
	}
	return nil
}

func runDeckShow(cmd *cobra.Command, args []string) error {
	deck, err := ownedDeck(cmd, args[0])
	if err != nil {
		return err
	}
	if deckJSON {
		return printJSON(cmd, toDeckJSON(deck))
	}
	printDeck(cmd, deck)
	return nil
}

func runDeckDelete(cmd *cobra.Command, args []string) error {
	deck, err := ownedDeck(cmd, args[0])
	if err != nil {
		return err
	}

	if !deckForce {
		cmd.Printf("Delete deck %q (%d cards)? [y/N]: ", deck.Name, len(deck.Cards))
		reader := newStdinReader(cmd)
		answer := readLine(reader)
		if answer != "y" && answer != "Y" {
			cmd.Println("Cancelled.")
			return nil
		}
	}

	if err := deckService.Delete(cmd.Context(), deck.ID); err != nil {
		return fmt.Errorf("failed to delete deck: %w", err)
	}
	cmd.Printf("Deleted deck %q\n", deck.Name)
	return nil
}

// ownedDeck loads a deck, treating other owners' decks as missing.
func ownedDeck(cmd *cobra.Command, id string) (*domain.Deck, error) {
	if deckService == nil {
		return nil, errors.New("deck service not configured")
	}
	deck, err := deckService.Get(cmd.Context(), id)
	if err == nil && deck.Owner != owner {
		err = domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("deck %s: %w", id, err)
	}
	return deck, nil
}

func printDeck(cmd *cobra.Command, d *domain.Deck) {
	cmd.Printf("%s\n", d.Name)
	cmd.Printf("  ID:         %s\n", d.ID)
	cmd.Printf("  Discipline: %s\n", d.Discipline)
	cmd.Printf("  Block:      %s\n", d.BlockDescription)
	cmd.Printf("  Colour:     %s\n", d.Color)
	cmd.Println()
	for i, c := range d.Cards {
		cmd.Printf("  %3d. %s\n", i+1, c.Text)
	}
}
