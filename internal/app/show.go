package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"
)

// Show prints recent history rows or fired transitions.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show history")
	}
	if closeStore != nil {
		defer closeStore()
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer writer.Flush()

	if opts.Transitions {
		records, err := store.ListRecentTransitions(ctx, opts.Limit)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Fprintln(os.Stdout, "no transitions found")
			return nil
		}

		fmt.Fprintln(writer, "Time (UTC)\tTerm\tFrom\tTo\tDirection\tTNA%")
		for _, rec := range records {
			fmt.Fprintf(
				writer,
				"%s\t%s\t%s\t%s\t%s\t%s\n",
				rec.ObservedAt.UTC().Format(time.RFC3339),
				rec.Term,
				rec.FromLevel,
				rec.ToLevel,
				rec.Direction,
				rec.TNA.StringFixed(2),
			)
		}
		return nil
	}

	rows, err := store.ListRecentHistory(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Fprintln(os.Stdout, "no history found")
		return nil
	}

	fmt.Fprintln(writer, "Time (UTC)\tTerm\tTNA%\tNet daily\tLevel\tSource")
	for _, row := range rows {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%s\n",
			row.ObservedAt.UTC().Format(time.RFC3339),
			row.Term,
			row.TNA.StringFixed(2),
			row.NetDailyRate.StringFixed(6),
			row.Level,
			row.Source,
		)
	}
	return nil
}
