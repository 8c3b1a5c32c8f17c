package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"attendance-tracker/internal/attendance"
	"attendance-tracker/internal/tracker"
)

// errQuit: quit コマンドでループを抜ける
var errQuit = errors.New("quit")

type exporter interface {
	Export(ctx context.Context, format string, w io.Writer) (string, error)
}

type kiosk struct {
	tr       *tracker.Tracker
	exporter exporter
	out      io.Writer
	shell    *cobra.Command
}

func newKiosk(tr *tracker.Tracker, exp exporter, out io.Writer) *kiosk {
	k := &kiosk{tr: tr, exporter: exp, out: out}
	k.shell = k.newShellCommand()
	return k
}

// newShellCommand: 対話中の 1 行 = 1 回の Execute
func (k *kiosk) newShellCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "kiosk",
		Short:         "Employee attendance kiosk",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetOut(k.out)
	root.SetErr(k.out)
	root.CompletionOptions.DisableDefaultCmd = true

	// ID/氏名はそのまま渡す（"-5" などもトラッカー側の入力チェックで弾く）
	in := &cobra.Command{
		Use:                "in <id> <name...>",
		Short:              "Check in",
		Args:               cobra.MinimumNArgs(1),
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// 失敗はトラッカーが通知する
			_, _ = k.tr.CheckIn(cmd.Context(), args[0], strings.Join(args[1:], " "))
			return nil
		},
	}
	out := &cobra.Command{
		Use:                "out <id> <name...>",
		Short:              "Check out",
		Args:               cobra.MinimumNArgs(1),
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _ = k.tr.CheckOut(cmd.Context(), args[0], strings.Join(args[1:], " "))
			return nil
		},
	}
	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show today's attendance",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return k.tr.Render(cmd.OutOrStdout())
		},
	}
	reload := &cobra.Command{
		Use:   "reload",
		Short: "Reload today's records from the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := k.tr.LoadToday(cmd.Context()); err != nil {
				return nil
			}
			return k.tr.Render(cmd.OutOrStdout())
		},
	}
	export := &cobra.Command{
		Use:   "export <path> [xlsx|csv]",
		Short: "Download all records (xlsx by default)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			format := attendance.FormatXLSX
			if len(args) > 1 {
				format = strings.ToLower(args[1])
			}
			return k.export(cmd.Context(), cmd.OutOrStdout(), args[0], format)
		},
	}
	quit := &cobra.Command{
		Use:     "quit",
		Aliases: []string{"exit", "q"},
		Short:   "Exit",
		Args:    cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return errQuit
		},
	}

	root.AddCommand(in, out, list, reload, export, quit)
	return root
}

// run: 1行1コマンド。quit / EOF / ctx 終了で戻る
func (k *kiosk) run(ctx context.Context, in io.Reader) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprintln(k.out, `type "help" for commands`)
	for {
		fmt.Fprint(k.out, "> ")
		select {
		case <-ctx.Done():
			fmt.Fprintln(k.out)
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if !k.exec(ctx, line) {
				return
			}
		}
	}
}

// exec: false で終了
func (k *kiosk) exec(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true
	}
	fields[0] = strings.ToLower(fields[0])

	k.shell.SetArgs(fields)
	err := k.shell.ExecuteContext(ctx)
	resetFlags(k.shell)

	switch {
	case errors.Is(err, errQuit):
		return false
	case err != nil:
		fmt.Fprintf(k.out, "error: %v\n", err)
	}
	return true
}

// resetFlags: 同じコマンドツリーを繰り返し実行するので、前回の --help 等を残さない
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if f.Changed {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		}
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func (k *kiosk) export(ctx context.Context, w io.Writer, dst, format string) error {
	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	name, err := k.exporter.Export(ctx, format, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("export failed: %w", err)
	}
	fmt.Fprintf(w, "saved %s to %s\n", name, dst)
	return nil
}
