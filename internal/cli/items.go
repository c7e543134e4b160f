package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"
)

const timeLayout = time.DateTime

// idArg returns the id given on the command line or prompts for one.
func (a *App) idArg(args []string, prompt string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	return getSimpleText(a.reader, prompt, a.out)
}

// Add prompts for a title, a secret and the master password and stores a
// new encrypted item.
func (a *App) Add(ctx context.Context) error {
	u, err := a.session(ctx)
	if err != nil {
		return err
	}

	title, err := getSimpleText(a.reader, "Enter title", a.out)
	if err != nil {
		return err
	}

	secret, err := getPassword(a.out, "Enter secret")
	if err != nil {
		return err
	}
	defer wipe(secret)

	var id string
	err = withPassword(a.out, "Enter master password", func(master string) error {
		it, err := a.vault.Create(ctx, u, title, string(secret), master)
		if err != nil {
			return err
		}
		id = it.ID
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Item %s added\n", id)
	return nil
}

// List prints item ids, creation times and titles, oldest first.
func (a *App) List(ctx context.Context) error {
	u, err := a.session(ctx)
	if err != nil {
		return err
	}

	items, err := a.vault.List(ctx, u)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(a.out, "No items")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tTITLE")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", it.ID, it.CreatedAt.Local().Format(timeLayout), it.Title)
	}
	return tw.Flush()
}

// Show decrypts and prints one item.
func (a *App) Show(ctx context.Context, args []string) error {
	u, err := a.session(ctx)
	if err != nil {
		return err
	}

	id, err := a.idArg(args, "Enter item id to show")
	if err != nil {
		return err
	}

	return withPassword(a.out, "Enter master password", func(master string) error {
		it, err := a.vault.Reveal(ctx, u, id, master)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Title:   %s\nCreated: %s\nSecret:  %s\n", it.Title, it.CreatedAt.Local().Format(timeLayout), it.Secret)
		return nil
	})
}

// Edit replaces an item's title and secret. Empty answers keep the current
// values.
func (a *App) Edit(ctx context.Context, args []string) error {
	u, err := a.session(ctx)
	if err != nil {
		return err
	}

	id, err := a.idArg(args, "Enter item id to edit")
	if err != nil {
		return err
	}

	var newID string
	err = withPassword(a.out, "Enter master password", func(master string) error {
		current, err := a.vault.Reveal(ctx, u, id, master)
		if err != nil {
			return err
		}

		title, err := getSimpleText(a.reader, fmt.Sprintf("Enter new title [%s]", current.Title), a.out)
		if err != nil {
			return err
		}
		if title == "" {
			title = current.Title
		}

		secret, err := getPassword(a.out, "Enter new secret (empty keeps current)")
		if err != nil {
			return err
		}
		defer wipe(secret)

		value := current.Secret
		if len(secret) > 0 {
			value = string(secret)
		}

		it, err := a.vault.Edit(ctx, u, id, title, value, master)
		if err != nil {
			return err
		}
		newID = it.ID
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Item %s replaced by %s\n", id, newID)
	return nil
}

// Delete removes an item.
func (a *App) Delete(ctx context.Context, args []string) error {
	u, err := a.session(ctx)
	if err != nil {
		return err
	}

	id, err := a.idArg(args, "Enter item id to delete")
	if err != nil {
		return err
	}

	if err := a.vault.Delete(ctx, u, id); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Item %s deleted\n", id)
	return nil
}
