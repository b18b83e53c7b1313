package main

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"

	"github.com/mmynk/spendsync/internal/apiclient"
	"github.com/mmynk/spendsync/internal/coordinator"
	"github.com/mmynk/spendsync/internal/models"
	"github.com/mmynk/spendsync/internal/store"
)

// envPassword is read when --password is not given.
const envPassword = "SPENDSYNC_PASSWORD"

func passwordFlag(value string) (string, error) {
	if value != "" {
		return value, nil
	}
	if v := os.Getenv(envPassword); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("password required (--password or $%s)", envPassword)
}

func runLogin(ctx context.Context, a *app, args []string) error {
	fs := newFlags("login", a.out)
	password := fs.String("password", "", "account password (default: $"+envPassword+")")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: spendsync login <email> [--password PASSWORD]")
	}
	pw, err := passwordFlag(*password)
	if err != nil {
		return err
	}

	if err := a.coord.Session().Login(ctx, fs.Arg(0), pw); err != nil {
		return err
	}
	user := a.coord.State().Session.User
	fmt.Fprintf(a.out, "Signed in as %s <%s>\n", user.Name, user.Email)
	return nil
}

func runRegister(ctx context.Context, a *app, args []string) error {
	fs := newFlags("register", a.out)
	name := fs.String("name", "", "display name")
	password := fs.String("password", "", "account password (default: $"+envPassword+")")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 || *name == "" {
		return errors.New("usage: spendsync register <email> --name NAME [--password PASSWORD]")
	}
	pw, err := passwordFlag(*password)
	if err != nil {
		return err
	}

	if err := a.coord.Session().Register(ctx, fs.Arg(0), pw, *name); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Registered and signed in as %s\n", fs.Arg(0))
	return nil
}

func runLogout(ctx context.Context, a *app, _ []string) error {
	a.coord.Logout(ctx)
	fmt.Fprintln(a.out, "Signed out")
	return nil
}

func runWhoami(_ context.Context, a *app, _ []string) error {
	st := a.coord.State().Session
	if st.User == nil {
		return errors.New("session has no user")
	}
	fmt.Fprintf(a.out, "%s <%s>\nid: %s\n", st.User.Name, st.User.Email, st.User.ID)
	return nil
}

func runProfile(ctx context.Context, a *app, args []string) error {
	fs := newFlags("profile", a.out)
	name := fs.String("name", "", "new display name")
	currency := fs.String("currency", "", "new currency code")
	budget := fs.String("budget", "", "new monthly budget")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var patch models.ProfilePatch
	if fs.Changed("name") {
		patch.Name = name
	}
	if fs.Changed("currency") {
		patch.Currency = currency
	}
	if fs.Changed("budget") {
		amount, err := models.ParseAmount(*budget)
		if err != nil {
			return err
		}
		patch.MonthlyBudget = &amount
	}

	session := a.coord.Session()
	if patch.IsEmpty() {
		if err := session.FetchProfile(ctx); err != nil {
			return err
		}
	} else if err := session.UpdateProfile(ctx, patch); err != nil {
		return err
	}

	profile := a.coord.State().Session.Profile
	keys := make([]string, 0, len(profile))
	for k := range profile {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, k := range keys {
		fmt.Fprintf(tw, "%s\t%v\n", k, profile[k])
	}
	return tw.Flush()
}

func runExpenses(ctx context.Context, a *app, args []string) error {
	fs := newFlags("expenses", a.out)
	var q models.ExpenseQuery
	var category string
	fs.IntVar(&q.Page, "page", 1, "page number")
	fs.StringVar(&category, "category", "", "only this category")
	fs.StringVar(&q.Search, "search", "", "match description text")
	if err := fs.Parse(args); err != nil {
		return err
	}
	q.Category = models.Category(category)

	if err := a.coord.Expenses().Fetch(ctx, q); err != nil {
		return err
	}
	st := a.coord.State().Expenses
	printExpenses(a, st.Items)
	fmt.Fprintf(a.out, "page %d of %d\n", st.Page, st.TotalPages)
	return nil
}

func printExpenses(a *app, items []models.Expense) {
	if len(items) == 0 {
		fmt.Fprintln(a.out, "No expenses")
		return
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tAMOUNT\tCATEGORY\tDESCRIPTION\tRECEIPT")
	for _, e := range items {
		receipt := ""
		if e.HasReceipt {
			receipt = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.ID, e.Date, e.Amount.StringFixed(2), e.Category, e.Description, receipt)
	}
	tw.Flush()
}

// openReceipt opens path for upload. The caller closes the returned file.
func openReceipt(path string) (*os.File, apiclient.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apiclient.File{}, fmt.Errorf("failed to open receipt: %w", err)
	}
	return f, apiclient.File{
		Name:        filepath.Base(path),
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
		Body:        f,
	}, nil
}

func runAdd(ctx context.Context, a *app, args []string) error {
	fs := newFlags("add", a.out)
	var in models.ExpenseInput
	var category, method, receiptPath string
	fs.StringVarP(&in.Description, "description", "d", "", "what the expense was for")
	fs.StringVarP(&in.Amount, "amount", "a", "", "amount, e.g. 12.50")
	fs.StringVarP(&category, "category", "c", "", "category (default: Other)")
	fs.StringVar(&in.Date, "date", "", "date as YYYY-MM-DD (default: today)")
	fs.StringVar(&method, "payment", "", "payment method (default: Other)")
	fs.StringVar(&in.Notes, "notes", "", "free-form notes")
	fs.StringVar(&receiptPath, "receipt", "", "receipt image or PDF to attach")
	if err := fs.Parse(args); err != nil {
		return err
	}
	in.Category = models.Category(category)
	in.PaymentMethod = models.PaymentMethod(method)

	var receipt *apiclient.File
	if receiptPath != "" {
		f, file, err := openReceipt(receiptPath)
		if err != nil {
			return err
		}
		defer f.Close()
		receipt = &file
	}

	created, err := a.coord.SubmitExpense(ctx, in, receipt)
	var partial *coordinator.PartialFailure
	if errors.As(err, &partial) {
		fmt.Fprintf(a.out, "Added %s without its receipt\n", partial.Expense.ID)
		return err
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Added %s: %s %s\n", created.ID, created.Amount.StringFixed(2), created.Description)
	return nil
}

func runEdit(ctx context.Context, a *app, args []string) error {
	fs := newFlags("edit", a.out)
	description := fs.String("description", "", "new description")
	amount := fs.String("amount", "", "new amount")
	category := fs.String("category", "", "new category")
	date := fs.String("date", "", "new date as YYYY-MM-DD")
	notes := fs.String("notes", "", "new notes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: spendsync edit <id> [--description ...] [--amount ...]")
	}

	var patch models.ExpensePatch
	if fs.Changed("description") {
		patch.Description = description
	}
	if fs.Changed("amount") {
		v, err := models.ParseAmount(*amount)
		if err != nil {
			return err
		}
		patch.Amount = &v
	}
	if fs.Changed("category") {
		c := models.Category(*category)
		patch.Category = &c
	}
	if fs.Changed("date") {
		d, err := models.ParseDate(*date)
		if err != nil {
			return err
		}
		patch.Date = &d
	}
	if fs.Changed("notes") {
		patch.Notes = notes
	}

	updated, err := a.coord.Expenses().Update(ctx, fs.Arg(0), patch)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Updated %s: %s %s\n", updated.ID, updated.Amount.StringFixed(2), updated.Description)
	return nil
}

func runDelete(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: spendsync delete <id>")
	}
	if err := a.coord.Expenses().Delete(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted %s\n", args[0])
	return nil
}

func runDashboard(ctx context.Context, a *app, args []string) error {
	fs := newFlags("dashboard", a.out)
	months := fs.Int("months", store.DefaultTrendMonths, "months of spending trend")
	if err := fs.Parse(args); err != nil {
		return err
	}

	dash := a.coord.Dashboard()
	err := errors.Join(dash.Fetch(ctx), dash.FetchTrend(ctx, *months))
	st := a.coord.State().Dashboard

	if s := st.Stats; s != nil {
		fmt.Fprintf(a.out, "Spent this month:   %s (%+.1f%%)\n", s.TotalSpent.StringFixed(2), s.MonthlyChange.Spent)
		fmt.Fprintf(a.out, "Transactions:       %d\n", s.TotalTransactions)
		fmt.Fprintf(a.out, "Average:            %s\n", s.AvgTransaction.StringFixed(2))
		fmt.Fprintf(a.out, "Budget remaining:   %s\n", s.BudgetRemaining.StringFixed(2))
	}
	if len(st.CategoryBreakdown) > 0 {
		fmt.Fprintln(a.out, "\nBy category:")
		tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		for _, c := range st.CategoryBreakdown {
			fmt.Fprintf(tw, "  %s\t%s\t%.0f%%\n", c.Name, c.Amount.StringFixed(2), c.Percentage)
		}
		tw.Flush()
	}
	if len(st.SpendingTrend) > 0 {
		fmt.Fprintln(a.out, "\nTrend:")
		for _, p := range st.SpendingTrend {
			fmt.Fprintf(a.out, "  %s  %s\n", p.Period, p.Amount.StringFixed(2))
		}
	}
	return err
}

func runChat(ctx context.Context, a *app, args []string) error {
	text := joinArgs(args)
	if text == "" {
		return errors.New("usage: spendsync chat <message>")
	}
	if err := a.coord.Chat(ctx, text); err != nil {
		return err
	}
	msgs := a.coord.State().Assistant.Messages
	if last := msgs[len(msgs)-1]; last.Role == models.RoleAssistant {
		fmt.Fprintln(a.out, last.Content)
	}
	return nil
}

func runInsights(ctx context.Context, a *app, _ []string) error {
	if err := a.coord.Assistant().FetchInsights(ctx); err != nil {
		return err
	}
	insights := a.coord.State().Assistant.Insights
	if len(insights) == 0 {
		fmt.Fprintln(a.out, "No insights yet")
		return nil
	}
	for _, in := range insights {
		fmt.Fprintf(a.out, "[%s] %s\n  %s\n", in.Kind, in.Title, in.Description)
	}
	return nil
}

func runPredict(ctx context.Context, a *app, _ []string) error {
	if err := a.coord.Assistant().PredictExpenses(ctx); err != nil {
		return err
	}
	preds := a.coord.State().Assistant.Predictions
	if len(preds) == 0 {
		fmt.Fprintln(a.out, "Not enough history to predict")
		return nil
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, p := range preds {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Period, p.Category, p.Amount.StringFixed(2))
	}
	return tw.Flush()
}

func runScan(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: spendsync scan <receipt-file>")
	}
	f, file, err := openReceipt(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	scan, err := a.coord.Assistant().AnalyzeReceipt(ctx, file)
	if err != nil {
		return err
	}
	in := scan.Input()
	fmt.Fprintf(a.out, "description: %s\namount: %s\ncategory: %s\ndate: %s\n",
		in.Description, in.Amount, in.Category, in.Date)
	return nil
}
