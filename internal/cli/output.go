package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mmcdole/bookcat/internal/domain"
	"github.com/mmcdole/bookcat/internal/tui/styles"
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(styles.Amber).Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
)

// Column indexes in the book table
const (
	colID = iota
	colTitle
	colAuthor
	colPrice
	colStock
	colCategory
)

func renderBooks(books []domain.Book, categories []domain.Category) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(styles.DimStyle).
		Headers("ID", "Title", "Author", "Price", "Stock", "Category").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == colID || col == colPrice:
				return numberStyle
			case col == colStock && row >= 0 && row < len(books) && !books[row].InStock():
				return cellStyle.Inherit(styles.OutOfStockStyle)
			default:
				return cellStyle
			}
		})

	for _, b := range books {
		t.Row(
			strconv.FormatInt(b.ID, 10),
			b.Title,
			b.Author,
			domain.FormatPrice(b.Price),
			b.StockLabel(),
			b.CategoryName(categories),
		)
	}
	return t.Render()
}

func renderCategories(categories []domain.Category) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(styles.DimStyle).
		Headers("ID", "Name").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return numberStyle
			default:
				return cellStyle
			}
		})

	for _, c := range categories {
		t.Row(strconv.FormatInt(c.ID, 10), c.Name)
	}
	return t.Render()
}

func alwaysConfirm(context.Context, string) (bool, error) {
	return true, nil
}

// promptConfirmer asks on the terminal; anything but y/yes declines
type promptConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

func newPromptConfirmer(in io.Reader, out io.Writer) *promptConfirmer {
	return &promptConfirmer{in: bufio.NewReader(in), out: out}
}

func (p *promptConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	fmt.Fprintf(p.out, "%s [y/N] ", prompt)
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		if err == io.EOF {
			return false, nil
		}
		return false, fmt.Errorf("failed to read answer: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

var _ domain.Confirmer = (*promptConfirmer)(nil)
