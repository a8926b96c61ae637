package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/brettbedarf/zkpath"
	"github.com/brettbedarf/zkpath/session"
)

var (
	pathColor = color.New(color.FgCyan)
	statColor = color.New(color.Faint)
	eventCol  = color.New(color.FgYellow)
)

func opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), time.Duration(timeoutMS)*time.Millisecond)
}

func printStat(st *session.Stat) {
	if st == nil {
		return
	}
	statColor.Printf("version=%d cversion=%d children=%d mtime=%s\n",
		st.Version, st.Cversion, st.NumChildren,
		time.UnixMilli(st.Mtime).Format(time.RFC3339))
}

var lsCmd = &cobra.Command{
	Use:   "ls <path>",
	Short: "List the children of a node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		defer client.Close()

		ctx, cancel := opCtx()
		defer cancel()
		res, err := client.GetChildren(args[0]).Await(ctx)
		if err != nil {
			return err
		}
		for _, name := range res.Children {
			pathColor.Println(name)
		}
		printStat(res.Stat)
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get <path>",
	Short: "Read a node's data",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		defer client.Close()

		ctx, cancel := opCtx()
		defer cancel()
		res, err := client.Get(args[0]).Await(ctx)
		if err != nil {
			return err
		}
		fmt.Println(string(res.Data))
		printStat(res.Stat)
		return nil
	},
}

var setVersion int32

var setCmd = &cobra.Command{
	Use:   "set <path> <data>",
	Short: "Write a node's data",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		defer client.Close()

		ctx, cancel := opCtx()
		defer cancel()
		res, err := client.Set(args[0], []byte(args[1]), setVersion).Await(ctx)
		if err != nil {
			return err
		}
		pathColor.Println(res.Path)
		printStat(res.Stat)
		return nil
	},
}

var createMode string

var createCmd = &cobra.Command{
	Use:   "create <path> [data]",
	Short: "Create a single node",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := parseMode(createMode)
		if err != nil {
			return err
		}
		client, err := newClient()
		if err != nil {
			return err
		}
		defer client.Close()

		var data []byte
		if len(args) == 2 {
			data = []byte(args[1])
		}
		ctx, cancel := opCtx()
		defer cancel()
		res, err := client.Create(args[0], data, mode).Await(ctx)
		if err != nil {
			return err
		}
		pathColor.Println(res.Created)
		return nil
	},
}

func parseMode(s string) (zkpath.CreateMode, error) {
	switch s {
	case "", "persistent":
		return zkpath.ModePersistent, nil
	case "ephemeral":
		return zkpath.ModeEphemeral, nil
	case "sequential":
		return zkpath.ModeSequential, nil
	case "ephemeral-sequential":
		return zkpath.ModeEphemeralSequential, nil
	}
	return 0, fmt.Errorf("unknown create mode %q", s)
}

var mkpathCmd = &cobra.Command{
	Use:   "mkpath <path>",
	Short: "Create a path and all missing ancestors",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		defer client.Close()

		ctx, cancel := opCtx()
		defer cancel()
		res, err := client.CreatePath(args[0]).Await(ctx)
		if err != nil {
			return err
		}
		pathColor.Println(res.Path)
		return nil
	},
}

var (
	rmVersion int32
	rmForce   bool
)

var rmCmd = &cobra.Command{
	Use:   "rm <path>",
	Short: "Delete a node, optionally with its whole subtree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		defer client.Close()

		ctx, cancel := opCtx()
		defer cancel()
		res, err := client.Delete(args[0], rmVersion, rmForce).Await(ctx)
		if err != nil {
			return err
		}
		pathColor.Println(res.Path)
		return nil
	},
}

var watchChildren bool

var watchCmd = &cobra.Command{
	Use:   "watch <path>",
	Short: "Tail data or children changes on a node until interrupted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		defer client.Close()

		ctx, cancel := opCtx()
		defer cancel()
		if watchChildren {
			res, err := client.WatchChildren(args[0], true, func(res zkpath.ChildrenResult) {
				eventCol.Printf("children %s: %v\n", res.Path, res.Children)
			}).Await(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("children %s: %v\n", res.Path, res.Children)
		} else {
			res, err := client.WatchData(args[0], true, func(path string, res *zkpath.DataResult) {
				if res == nil {
					eventCol.Printf("deleted %s\n", path)
					return
				}
				eventCol.Printf("data %s: %s\n", res.Path, res.Data)
			}).Await(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("data %s: %s\n", res.Path, res.Data)
		}

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		return nil
	},
}

func init() {
	setCmd.Flags().Int32Var(&setVersion, "version", zkpath.AnyVersion, "expected data version (-1 for any)")
	createCmd.Flags().StringVar(&createMode, "mode", "persistent", "persistent|ephemeral|sequential|ephemeral-sequential")
	rmCmd.Flags().Int32Var(&rmVersion, "version", zkpath.AnyVersion, "expected data version (-1 for any)")
	rmCmd.Flags().BoolVarP(&rmForce, "force", "f", false, "delete all descendants first")
	watchCmd.Flags().BoolVar(&watchChildren, "children", false, "watch the child set instead of data")
}
