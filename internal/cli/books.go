package cli

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/mmcdole/bookcat/internal/catalog"
	"github.com/mmcdole/bookcat/internal/domain"
	"github.com/spf13/cobra"
)

func (a *App) listCommand() *cobra.Command {
	var category, search string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List books",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if err := a.load(cmd); err != nil {
				return err
			}

			if category != "" {
				id, err := resolveCategory(category, a.store.Snapshot().Categories)
				if err != nil {
					return err
				}
				if err := a.store.SetFilter(ctx, id); err != nil {
					return errors.New(catalog.MsgLoadBooksFailed)
				}
			}

			snap := a.store.Snapshot()
			books := snap.Books
			if search != "" {
				books = searchBooks(search, books, snap.Categories)
			}

			if len(books) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No books found.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderBooks(books, snap.Categories))
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "only show books in this category (ID or name)")
	cmd.Flags().StringVar(&search, "search", "", "fuzzy match on title and author")
	return cmd
}

func (a *App) categoriesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(cmd); err != nil {
				return err
			}
			cats := a.store.Snapshot().Categories
			if len(cats) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No categories.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderCategories(cats))
			return nil
		},
	}
}

// bookFlags are the draft fields settable from the command line
type bookFlags struct {
	title, author, price, stock, category string
}

func (f *bookFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "book title")
	cmd.Flags().StringVar(&f.author, "author", "", "author name")
	cmd.Flags().StringVar(&f.price, "price", "", "price, greater than 0")
	cmd.Flags().StringVar(&f.stock, "stock", "", "copies in stock")
	cmd.Flags().StringVar(&f.category, "category", "", "category ID or name")
}

// apply copies the flags the user set onto the open draft
func (f *bookFlags) apply(cmd *cobra.Command, cmds *catalog.Commands, categories []domain.Category) error {
	values := map[string]string{
		"title":  f.title,
		"author": f.author,
		"price":  f.price,
		"stock":  f.stock,
	}
	fields := map[string]string{
		"title":  domain.FieldTitle,
		"author": domain.FieldAuthor,
		"price":  domain.FieldPrice,
		"stock":  domain.FieldStock,
	}

	for name, field := range fields {
		if !cmd.Flags().Changed(name) {
			continue
		}
		if err := cmds.SetField(field, values[name]); err != nil {
			return err
		}
	}

	if cmd.Flags().Changed("category") {
		id, err := resolveCategory(f.category, categories)
		if err != nil {
			return err
		}
		if err := cmds.SetField(domain.FieldCategory, strconv.FormatInt(id, 10)); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) addCommand() *cobra.Command {
	var flags bookFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a book",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(cmd); err != nil {
				return err
			}

			cmds := catalog.NewCommands(a.store, nil, nil)
			cmds.AddBook()
			if err := flags.apply(cmd, cmds, a.store.Snapshot().Categories); err != nil {
				return err
			}
			return a.submit(cmd, cmds)
		},
	}
	flags.register(cmd)
	return cmd
}

func (a *App) editCommand() *cobra.Command {
	var flags bookFlags

	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change fields of a book; unset flags keep their current value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.load(cmd); err != nil {
				return err
			}

			cmds := catalog.NewCommands(a.store, nil, nil)
			if err := cmds.EditBookByID(cmd.Context(), id); err != nil {
				return errors.New(domain.RemoteMessage(err, catalog.MsgLoadBookFailed))
			}
			if err := flags.apply(cmd, cmds, a.store.Snapshot().Categories); err != nil {
				return err
			}
			return a.submit(cmd, cmds)
		},
	}
	flags.register(cmd)
	return cmd
}

// submit saves the open draft and reports the outcome
func (a *App) submit(cmd *cobra.Command, cmds *catalog.Commands) error {
	success := catalog.MsgBookUpdated
	if cmds.View().Creating() {
		success = catalog.MsgBookAdded
	}

	res, err := cmds.Submit(cmd.Context())
	if err != nil {
		return err
	}

	if res.Errors.HasErrors() {
		w := cmd.ErrOrStderr()
		for _, field := range domain.DraftFields {
			if msg, ok := res.Errors[field]; ok {
				fmt.Fprintf(w, "  %s: %s\n", field, msg)
			}
		}
		return fmt.Errorf("book is invalid")
	}
	if res.Err != nil {
		return errors.New(domain.RemoteMessage(res.Err, catalog.MsgSaveFailed))
	}

	fmt.Fprintln(cmd.OutOrStdout(), success)
	if res.Book != nil {
		fmt.Fprintln(cmd.OutOrStdout(), renderBooks([]domain.Book{*res.Book}, a.store.Snapshot().Categories))
	}
	return nil
}

func (a *App) deleteCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			var confirmer domain.Confirmer
			switch {
			case yes:
				confirmer = domain.ConfirmFunc(alwaysConfirm)
			case a.IsTerminal != nil && a.IsTerminal():
				confirmer = newPromptConfirmer(a.In, cmd.ErrOrStderr())
			}

			cmds := catalog.NewCommands(a.store, confirmer, nil)
			err = cmds.Delete(cmd.Context(), id)
			switch {
			case errors.Is(err, domain.ErrDeleteDeclined) && confirmer == nil:
				return errors.New("refusing to delete without confirmation; pass --yes")
			case errors.Is(err, domain.ErrDeleteDeclined):
				fmt.Fprintln(cmd.OutOrStdout(), "Not deleted.")
				return nil
			case err != nil:
				return errors.New(domain.RemoteMessage(err, catalog.MsgDeleteFailed))
			}

			fmt.Fprintln(cmd.OutOrStdout(), catalog.MsgBookDeleted)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

// load runs the initial load. Cached data is still shown when the service
// is unreachable.
func (a *App) load(cmd *cobra.Command) error {
	err := a.store.Initialize(cmd.Context())
	if err == nil {
		return nil
	}

	snap := a.store.Snapshot()
	if len(snap.Books) == 0 && len(snap.Categories) == 0 {
		return fmt.Errorf("%s: %w", snap.Notification.Message, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s, showing cached data\n", snap.Notification.Message)
	return nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid book ID %q", s)
	}
	return id, nil
}

// resolveCategory accepts a category ID or a name. Names match exactly
// (ignoring case) first, then fuzzily; an ambiguous fuzzy match is an error.
func resolveCategory(arg string, categories []domain.Category) (int64, error) {
	arg = strings.TrimSpace(arg)

	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		for _, c := range categories {
			if c.ID == id {
				return id, nil
			}
		}
		return 0, fmt.Errorf("unknown category %d", id)
	}

	names := make([]string, len(categories))
	for i, c := range categories {
		if strings.EqualFold(c.Name, arg) {
			return c.ID, nil
		}
		names[i] = c.Name
	}

	ranks := fuzzy.RankFindNormalizedFold(arg, names)
	if len(ranks) == 0 {
		return 0, fmt.Errorf("unknown category %q (have: %s)", arg, strings.Join(names, ", "))
	}
	sort.Sort(ranks)

	if len(ranks) > 1 && ranks[1].Distance == ranks[0].Distance {
		var tied []string
		for _, r := range ranks {
			if r.Distance == ranks[0].Distance {
				tied = append(tied, r.Target)
			}
		}
		return 0, fmt.Errorf("category %q is ambiguous: %s", arg, strings.Join(tied, ", "))
	}
	return categories[ranks[0].OriginalIndex].ID, nil
}

// searchBooks keeps books whose title, author or category fuzzily contain
// query, best matches first
func searchBooks(query string, books []domain.Book, categories []domain.Category) []domain.Book {
	targets := make([]string, len(books))
	for i, b := range books {
		targets[i] = b.Title + " " + b.Author + " " + b.CategoryName(categories)
	}

	ranks := fuzzy.RankFindNormalizedFold(query, targets)
	sort.Stable(ranks)

	out := make([]domain.Book, 0, len(ranks))
	for _, r := range ranks {
		out = append(out, books[r.OriginalIndex])
	}
	return out
}
