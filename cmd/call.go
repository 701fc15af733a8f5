package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ytbridge/internal/server"
	"github.com/desertthunder/ytbridge/internal/shared"
)

// Call sends one command through the router and prints the response envelope.
func (r *Runner) Call(ctx context.Context, cmd *cli.Command) error {
	command := cmd.StringArg("command")
	if command == "" {
		return fmt.Errorf("%w: command", shared.ErrMissingArgument)
	}

	params, err := parseArgs(cmd.StringSlice("arg"))
	if err != nil {
		return err
	}

	callID := cmd.String("call-id")
	if callID == "" {
		callID = shared.GenerateID()
	}

	req, err := server.NewRequest(command, callID, params)
	if err != nil {
		return err
	}

	router, cleanup, err := r.bridge(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	resp := router.Dispatch(ctx, req)
	if err := r.writeJSON(resp, cmd.Bool("pretty")); err != nil {
		return err
	}
	if resp.Status != server.StatusOK {
		return fmt.Errorf("%w: %s", shared.ErrAPIRequest, resp.Message)
	}
	return nil
}

// parseArgs turns key=value pairs into request parameters. Values that parse as JSON scalars
// (numbers, booleans, null) keep their type; everything else is a string.
func parseArgs(pairs []string) (map[string]any, error) {
	params := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: expected key=value, got %q", shared.ErrInvalidArgument, pair)
		}

		switch v := gjson.Parse(value); {
		case !gjson.Valid(value):
			params[key] = value
		case v.Type == gjson.Number:
			params[key] = v.Num
		case v.Type == gjson.True || v.Type == gjson.False:
			params[key] = v.Bool()
		case v.Type == gjson.Null:
			params[key] = nil
		case v.Type == gjson.String:
			params[key] = v.Str
		default:
			params[key] = value
		}
	}
	return params, nil
}
