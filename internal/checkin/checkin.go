// Package checkin provides the terminal mental-state check-in.
//
// It walks the four metrics as an interactive form, writes the result
// through the store, and renders the composite readiness score.
package checkin

import (
	"fmt"
	"io"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/edgeboard/edgeboard/internal/schema"
	"github.com/edgeboard/edgeboard/internal/store"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	scoreStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	lowStyle   = scoreStyle.Background(lipgloss.Color("1")).Foreground(lipgloss.Color("15"))
	midStyle   = scoreStyle.Background(lipgloss.Color("3")).Foreground(lipgloss.Color("0"))
	highStyle  = scoreStyle.Background(lipgloss.Color("2")).Foreground(lipgloss.Color("0"))
)

func levelOptions() []huh.Option[schema.Level] {
	return []huh.Option[schema.Level]{
		huh.NewOption("Low", schema.LevelLow),
		huh.NewOption("Medium", schema.LevelMedium),
		huh.NewOption("High", schema.LevelHigh),
	}
}

// Run prompts for all four metrics, prefilled with the current
// snapshot, persists the result, and prints the readiness score to w.
func Run(st *store.Store, w io.Writer) error {
	current := st.Mental()

	confidence := current.Confidence
	focus := current.Focus
	emotional := current.Emotional
	energy := current.Energy

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[schema.Level]().
				Title("Confidence").
				Description("How much do you trust your read today?").
				Options(levelOptions()...).
				Value(&confidence),
			huh.NewSelect[schema.Level]().
				Title("Focus").
				Description("How free of distraction are you?").
				Options(levelOptions()...).
				Value(&focus),
			huh.NewSelect[schema.Level]().
				Title("Emotional state").
				Description("How calm are you after the last session?").
				Options(levelOptions()...).
				Value(&emotional),
			huh.NewSelect[schema.Level]().
				Title("Energy").
				Description("How rested are you?").
				Options(levelOptions()...).
				Value(&energy),
		),
	)

	if err := form.Run(); err != nil {
		return fmt.Errorf("check-in aborted: %w", err)
	}

	mental, err := st.UpdateMental(store.MentalPatch{
		Confidence: &confidence,
		Focus:      &focus,
		Emotional:  &emotional,
		Energy:     &energy,
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(w, Render(mental))
	return nil
}

// Render formats a snapshot and its readiness score for the terminal.
func Render(m schema.MentalState) string {
	score := m.Score()

	style := lowStyle
	switch {
	case score >= 75:
		style = highStyle
	case score >= 50:
		style = midStyle
	}

	out := titleStyle.Render("Readiness") + " " + style.Render(fmt.Sprintf("%d%%", score)) + "\n"
	for _, metric := range schema.Metrics {
		out += fmt.Sprintf("  %-12s %s\n", metric, m.Get(metric))
	}
	return out
}
