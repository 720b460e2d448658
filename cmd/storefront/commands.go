package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/dmitrymomot/storefront/pkg/api"
	"github.com/dmitrymomot/storefront/pkg/authsession"
	"github.com/dmitrymomot/storefront/pkg/cart"
)

var errUsage = errors.New("invalid usage")

func subcommand(name string) *pflag.FlagSet {
	return pflag.NewFlagSet("storefront "+name, pflag.ContinueOnError)
}

func runLogin(ctx context.Context, e *env, args []string) error {
	var email, password string
	fs := subcommand("login")
	fs.StringVarP(&email, "email", "e", "", "account email")
	fs.StringVarP(&password, "password", "p", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if email == "" || password == "" {
		return fmt.Errorf("%w: --email and --password are required", errUsage)
	}

	c := e.client
	c.session.Init(ctx)
	if !c.session.Login(ctx, strings.TrimSpace(email), password) {
		return c.session.Snapshot().LastError
	}
	return printSession(e.out, c.session.Snapshot())
}

func runRegister(ctx context.Context, e *env, args []string) error {
	var email, password, name string
	fs := subcommand("register")
	fs.StringVarP(&email, "email", "e", "", "account email")
	fs.StringVarP(&password, "password", "p", "", "account password")
	fs.StringVarP(&name, "name", "n", "", "display name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if email == "" || password == "" {
		return fmt.Errorf("%w: --email and --password are required", errUsage)
	}

	c := e.client
	c.session.Init(ctx)
	if !c.session.Register(ctx, strings.TrimSpace(email), password, strings.TrimSpace(name)) {
		return c.session.Snapshot().LastError
	}
	return printSession(e.out, c.session.Snapshot())
}

func runLogout(ctx context.Context, e *env, _ []string) error {
	c := e.client
	c.session.Init(ctx)
	c.session.Logout(ctx)
	_, err := fmt.Fprintln(e.out, "signed out")
	return err
}

func runWhoami(ctx context.Context, e *env, _ []string) error {
	c := e.client
	c.session.Init(ctx)
	if c.session.Snapshot().IsAuthenticated {
		c.session.RefreshUser(ctx)
	}
	state := c.session.Snapshot()
	if !state.IsAuthenticated {
		if g := c.store.Guest(ctx); g != nil {
			_, err := fmt.Fprintf(e.out, "guest %s\n", g.ID)
			return err
		}
		_, err := fmt.Fprintln(e.out, "not signed in")
		return err
	}
	return printSession(e.out, state)
}

func printSession(w io.Writer, s authsession.State) error {
	if s.User == nil {
		_, err := fmt.Fprintf(w, "%s\n", s.Status)
		return err
	}
	_, err := fmt.Fprintf(w, "%s as %s <%s>\n", s.Status, s.User.Name, s.User.Email)
	return err
}

func runProducts(ctx context.Context, e *env, args []string) error {
	var limit int
	var category string
	fs := subcommand("products")
	fs.IntVarP(&limit, "limit", "l", 50, "maximum number of products")
	fs.StringVarP(&category, "category", "c", "", "list the products of a category id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		list []api.Product
		err  error
	)
	if category != "" {
		list, err = e.client.api.CategoryProducts(ctx, api.ID(category))
	} else {
		list, err = e.client.api.Products(ctx, limit)
	}
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tPRICE")
	for _, p := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Title, p.CategoryName(), cart.FormatPrice(cart.PriceCents(p.Price)))
	}
	return tw.Flush()
}

func runCart(ctx context.Context, e *env, args []string) error {
	action := "show"
	if len(args) > 0 {
		action, args = args[0], args[1:]
	}

	c := e.client
	c.loadCart(ctx)

	var err error
	switch action {
	case "show":
	case "add":
		var variant string
		var qty int
		fs := subcommand("cart add")
		fs.StringVarP(&variant, "variant", "v", "", "variant id")
		fs.IntVarP(&qty, "quantity", "q", 1, "quantity")
		if err := fs.Parse(args); err != nil {
			return err
		}
		err = c.cart.AddItem(ctx, api.ID(variant), qty)
	case "update":
		if len(args) != 2 {
			return fmt.Errorf("%w: cart update <item-id> <quantity>", errUsage)
		}
		var qty int
		if _, serr := fmt.Sscanf(args[1], "%d", &qty); serr != nil {
			return fmt.Errorf("%w: quantity %q is not a number", errUsage, args[1])
		}
		err = c.cart.UpdateQuantity(ctx, api.ID(args[0]), qty)
	case "remove":
		if len(args) != 1 {
			return fmt.Errorf("%w: cart remove <item-id>", errUsage)
		}
		err = c.cart.RemoveItem(ctx, api.ID(args[0]))
	case "clear":
		err = c.cart.ClearCart(ctx)
		if errors.Is(err, cart.ErrClearFallback) {
			fmt.Fprintln(e.out, "server cart not cleared; local copy emptied")
			err = nil
		}
	default:
		return fmt.Errorf("%w: unknown cart action %q", errUsage, action)
	}
	if err != nil {
		return err
	}
	return printCart(e.out, c.cart.Snapshot())
}

func printCart(w io.Writer, s cart.Summary) error {
	if len(s.Items) == 0 {
		_, err := fmt.Fprintln(w, "cart is empty")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ITEM\tPRODUCT\tQTY\tUNIT\tTOTAL")
	for _, it := range s.Items {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", it.ID, it.Product.Title, it.Quantity,
			cart.FormatPrice(cart.UnitPrice(it)), cart.FormatPrice(cart.LineTotal(it)))
	}
	fmt.Fprintf(tw, "\t\t%d\t\t%s\n", s.TotalItems, cart.FormatPrice(s.TotalCents))
	return tw.Flush()
}
