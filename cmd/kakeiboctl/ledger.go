package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"kakeibo/internal/cli"
	"kakeibo/internal/core"
	"kakeibo/internal/export"
	"kakeibo/internal/report"
	"kakeibo/internal/services"
	"kakeibo/internal/settlement"
)

var (
	flagBy string

	flagDate          string
	flagCategory      string
	flagAmount        string
	flagMemo          string
	flagSplit         string
	flagPayer         string
	flagContributionA string

	flagSheet string
	flagOut   string
)

var settleCmd = &cobra.Command{
	Use:   "settle",
	Short: "Show who owes whom for the month",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := period()
		if err != nil {
			return err
		}
		return withLedger(cmd, func(l *cli.Ledger) error {
			res, warnings, err := l.Service.Settlement(cmd.Context(), p)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, cli.RenderSettlement(p, res, l.Service.Household()))
			fmt.Fprint(cmd.ErrOrStderr(), cli.RenderWarnings("ledger", warnings))
			return nil
		})
	},
}

var breakdownCmd = &cobra.Command{
	Use:   "breakdown",
	Short: "Show the month's spending by category, day or payer",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := period()
		if err != nil {
			return err
		}
		return withLedger(cmd, func(l *cli.Ledger) error {
			b, warnings, err := l.Service.Breakdown(cmd.Context(), p, flagBy)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), cli.RenderBreakdown(p, b))
			fmt.Fprint(cmd.ErrOrStderr(), cli.RenderWarnings("ledger", warnings))
			return nil
		})
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List the month's records, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := period()
		if err != nil {
			return err
		}
		return withLedger(cmd, func(l *cli.Ledger) error {
			records, warnings, err := l.Service.Expenses(cmd.Context(), p)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "\n  No records for %s.\n", p)
			} else {
				fmt.Fprint(cmd.OutOrStdout(), cli.RenderRecords(records, l.Service.Household()))
			}
			fmt.Fprint(cmd.ErrOrStderr(), cli.RenderWarnings("ledger", warnings))
			return nil
		})
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Month overview, settlement and budget alert",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := period()
		if err != nil {
			return err
		}
		return withLedger(cmd, func(l *cli.Ledger) error {
			sum, err := l.Service.Summary(cmd.Context(), p)
			if err != nil {
				return err
			}
			h := l.Service.Household()
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.RenderTitle(fmt.Sprintf("KAKEIBO  %s", p)))
			fmt.Fprintf(out, "  Total %s in %d records, %d items left to buy\n\n",
				sum.Overview.Total.Yen(), sum.Overview.Count, sum.PendingShopping)
			fmt.Fprint(out, cli.RenderBreakdown(p, services.Breakdown{By: "category", Categories: sum.Overview.ByCategory}))
			fmt.Fprint(out, cli.RenderSettlement(p, sum.Settlement, h))
			fmt.Fprintln(out, cli.RenderAlert(sum.Alert))
			fmt.Fprint(cmd.ErrOrStderr(), cli.RenderWarnings("ledger", sum.Warnings))
			return nil
		})
	},
}

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a payment",
	Long: "Record a payment made by one person (--payer) or split between both\n" +
		"(--contribution-a is the first participant's part, the other pays the rest).",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withLedger(cmd, func(l *cli.Ledger) error {
			in, err := expenseInput(l.Service.Household())
			if err != nil {
				return err
			}
			records, err := l.Service.RecordExpense(cmd.Context(), in)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "  Zero amount, nothing recorded.")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), cli.RenderRecords(records, l.Service.Household()))
			return nil
		})
	},
}

func expenseInput(h core.Household) (services.ExpenseInput, error) {
	date := core.DateOf(time.Now())
	if flagDate != "" {
		d, err := core.ParseDate(flagDate)
		if err != nil {
			return services.ExpenseInput{}, fmt.Errorf("--date %q: %w", flagDate, err)
		}
		date = d
	}
	amount, err := core.ParseAmount(flagAmount)
	if err != nil {
		return services.ExpenseInput{}, fmt.Errorf("--amount %q: %w", flagAmount, err)
	}
	split, err := core.ParseSplitType(flagSplit)
	if err != nil {
		return services.ExpenseInput{}, fmt.Errorf("--split %q: %w", flagSplit, err)
	}
	in := services.ExpenseInput{Date: date, Category: flagCategory, Amount: amount, Memo: flagMemo, Split: split}
	if flagPayer != "" {
		if in.Payer, err = h.ParsePayer(flagPayer); err != nil {
			return services.ExpenseInput{}, fmt.Errorf("--payer %q: %w", flagPayer, err)
		}
	}
	if flagContributionA != "" {
		c, err := core.ParseAmount(flagContributionA)
		if err != nil {
			return services.ExpenseInput{}, fmt.Errorf("--contribution-a %q: %w", flagContributionA, err)
		}
		in.ContributionA = &c
	}
	return in, nil
}

var importCmd = &cobra.Command{
	Use:   "import <workbook.xlsx>",
	Short: "Append the rows of a workbook sheet to the ledger",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		rows, err := export.ReadRows(f, flagSheet)
		if err != nil {
			return err
		}
		return withLedger(cmd, func(l *cli.Ledger) error {
			records, warnings, err := l.Service.ImportRows(cmd.Context(), rows)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "  Imported %d records.\n", len(records))
			fmt.Fprint(cmd.ErrOrStderr(), cli.RenderWarnings(args[0], warnings))
			return nil
		})
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the month as an .xlsx workbook",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := period()
		if err != nil {
			return err
		}
		out := flagOut
		if out == "" {
			out = fmt.Sprintf("kakeibo-%s.xlsx", p)
		}
		return withLedger(cmd, func(l *cli.Ledger) error {
			records, _, err := l.Service.Expenses(cmd.Context(), p)
			if err != nil {
				return err
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			err = export.WriteWorkbook(f, export.Month{
				Household:  l.Service.Household(),
				Period:     p,
				Records:    records,
				Settlement: settlement.ForPeriod(records, p),
				Overview:   report.Overview(records, p),
			})
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "  Wrote %s (%d records).\n", out, len(records))
			return nil
		})
	},
}

func init() {
	breakdownCmd.Flags().StringVar(&flagBy, "by", "category", "Group by category, day or payer")

	recordCmd.Flags().StringVar(&flagDate, "date", "", "Payment date (default: today)")
	recordCmd.Flags().StringVarP(&flagCategory, "category", "c", "", "Category")
	recordCmd.Flags().StringVarP(&flagAmount, "amount", "a", "", "Total amount")
	recordCmd.Flags().StringVarP(&flagMemo, "memo", "m", "", "Memo")
	recordCmd.Flags().StringVar(&flagSplit, "split", "shared", "shared, personal_a or personal_b")
	recordCmd.Flags().StringVar(&flagPayer, "payer", "", "Who paid everything (name, A or B)")
	recordCmd.Flags().StringVar(&flagContributionA, "contribution-a", "", "First participant's part of a split payment")
	_ = recordCmd.MarkFlagRequired("category")
	_ = recordCmd.MarkFlagRequired("amount")
	recordCmd.MarkFlagsOneRequired("payer", "contribution-a")
	recordCmd.MarkFlagsMutuallyExclusive("payer", "contribution-a")

	importCmd.Flags().StringVar(&flagSheet, "sheet", "", "Sheet to read (default: the first one)")
	exportCmd.Flags().StringVarP(&flagOut, "out", "o", "", "Output file (default: kakeibo-YYYY-MM.xlsx)")

	rootCmd.AddCommand(settleCmd, breakdownCmd, historyCmd, summaryCmd, recordCmd, importCmd, exportCmd)
}
