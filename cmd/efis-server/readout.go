package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/signalsfoundry/efis-adapter/internal/readout"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

type readoutOptions struct {
	addr      string
	category  string
	sensorKey string
	requestID string
	timeout   time.Duration
}

func newReadoutCmd(root *rootOptions) *cobra.Command {
	opts := &readoutOptions{}
	cmd := &cobra.Command{
		Use:       "readout <" + strings.Join(append(append([]string(nil), readout.Instruments...), "about"), "|") + ">",
		Short:     "Query a running server for one instrument readout",
		Args:      cobra.ExactArgs(1),
		ValidArgs: append(append([]string(nil), readout.Instruments...), "about"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.addr == "" {
				cfg, err := root.load()
				if err != nil {
					return err
				}
				opts.addr = dialAddr(cfg.Server.GRPCAddr)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()
			if opts.requestID != "" {
				ctx = metadata.AppendToOutgoingContext(ctx, "x-request-id", opts.requestID)
			}

			conn, err := grpc.NewClient(opts.addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
			if err != nil {
				return fmt.Errorf("dial %s: %w", opts.addr, err)
			}
			defer conn.Close()

			out, err := queryClient(ctx, readout.NewClient(conn), args[0], opts.category, opts.sensorKey)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), out, true)
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", "", "server address (defaults to server.grpc_addr from the config)")
	cmd.Flags().StringVar(&opts.category, "category", "", "category identifier")
	cmd.Flags().StringVar(&opts.sensorKey, "sensor", "", "inclinometer sensor array key")
	cmd.Flags().StringVar(&opts.requestID, "request-id", "", "request id propagated to server logs")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 5*time.Second, "request timeout")
	return cmd
}

// dialAddr turns a listen address such as ":50061" into a dialable one.
func dialAddr(listen string) string {
	if strings.HasPrefix(listen, ":") {
		return "localhost" + listen
	}
	return listen
}

func queryClient(ctx context.Context, c *readout.Client, instrument, category, sensorKey string) (any, error) {
	switch instrument {
	case readout.InstrumentHSI:
		return c.HSI(ctx, category)
	case readout.InstrumentVSI:
		return c.VSI(ctx, category)
	case readout.InstrumentSpeed:
		return c.Speed(ctx, category)
	case readout.InstrumentNavMode:
		return c.NavMode(ctx, category)
	case readout.InstrumentInclinometer:
		return c.Inclinometer(ctx, category, sensorKey)
	case "about":
		return c.About(ctx)
	default:
		return nil, fmt.Errorf("unknown instrument %q", instrument)
	}
}

func queryService(ctx context.Context, s *readout.Service, instrument, category, sensorKey string) (any, error) {
	switch instrument {
	case readout.InstrumentHSI:
		return s.HSI(ctx, category)
	case readout.InstrumentVSI:
		return s.VSI(ctx, category)
	case readout.InstrumentSpeed:
		return s.Speed(ctx, category)
	case readout.InstrumentNavMode:
		return s.NavMode(ctx, category)
	case readout.InstrumentInclinometer:
		return s.Inclinometer(ctx, category, sensorKey)
	case "about":
		return s.About(), nil
	default:
		return nil, fmt.Errorf("unknown instrument %q", instrument)
	}
}

func writeJSON(w io.Writer, v any, indent bool) error {
	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
