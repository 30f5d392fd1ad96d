package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/imrishuroy/campus-orderflow/internal/client"
	"github.com/imrishuroy/campus-orderflow/internal/lifecycle"
	"github.com/imrishuroy/campus-orderflow/internal/orders"
	"github.com/imrishuroy/campus-orderflow/internal/query"
)

var errUsage = errors.New("usage: orderctl list|count|advance|cancel bought|sold [args]")

func run(ctx context.Context, api *client.Client, args []string, out io.Writer, logger *zap.Logger) error {
	if len(args) < 2 {
		return errUsage
	}
	role, err := parseRole(args[1])
	if err != nil {
		return err
	}

	controller := lifecycle.NewController(api, logger)
	queries := query.NewService(api, controller, logger)

	switch cmd, rest := args[0], args[2:]; cmd {
	case "list":
		var list []orders.Order
		if len(rest) > 0 {
			status, perr := orders.ParseStatus(rest[0])
			if perr != nil {
				return perr
			}
			list, err = queries.ListByStatus(ctx, role, status)
		} else {
			list, err = queries.ListAll(ctx, role)
		}
		if err != nil {
			return err
		}
		return writeJSON(out, list)

	case "count":
		counts, err := queries.CountByStatus(ctx, role)
		if err != nil {
			return err
		}
		return writeJSON(out, counts)

	case "advance", "cancel":
		if len(rest) < 2 {
			return errUsage
		}
		if _, err := queries.ListAll(ctx, role); err != nil {
			return err
		}
		order, ok := controller.Cached(rest[0])
		if !ok {
			return fmt.Errorf("order %s not found in your %s orders", rest[0], args[1])
		}

		var next orders.Order
		if cmd == "cancel" {
			next, err = controller.Cancel(ctx, order, role, strings.Join(rest[1:], " "))
		} else {
			action, perr := orders.ParseAction(rest[1])
			if perr != nil {
				return perr
			}
			next, err = controller.Advance(ctx, order, role, action)
		}
		if err != nil {
			return err
		}
		return writeJSON(out, next)
	}
	return errUsage
}

func parseRole(s string) (orders.Role, error) {
	switch s {
	case "bought":
		return orders.RoleBuyer, nil
	case "sold":
		return orders.RoleSeller, nil
	}
	return "", fmt.Errorf("unknown order list %q, want bought or sold", s)
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
