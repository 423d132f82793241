package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/Arjun4522/internet-measurement-network/pkg/dbosapi"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "imnctl",
		Short:         "Operator utility for the Internet Measurement Network control plane",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newWorkflowsCommand())
	cmd.AddCommand(newTasksCommand())
	return cmd
}

func newWorkflowsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflows",
		Short: "Inspect and cancel workflows via the coordinator's REST surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newWorkflowsListCommand())
	cmd.AddCommand(newWorkflowsGetCommand())
	cmd.AddCommand(newWorkflowsCancelCommand())
	return cmd
}

func newWorkflowsListCommand() *cobra.Command {
	var (
		api    string
		status string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List workflows, optionally filtered by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/workflows"
			if status != "" {
				path += "?status=" + status
			}
			return restGet(cmd.Context(), api, path, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&api, "api", "http://127.0.0.1:8080", "Base URL of the coordinator's REST surface")
	cmd.Flags().StringVar(&status, "status", "", "Filter: terminal, non-terminal, or active")
	return cmd
}

func newWorkflowsGetCommand() *cobra.Command {
	var (
		api string
		id  string
	)
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Fetch a single workflow record",
		RunE: func(cmd *cobra.Command, args []string) error {
			return restGet(cmd.Context(), api, "/workflows/"+id, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&api, "api", "http://127.0.0.1:8080", "Base URL of the coordinator's REST surface")
	cmd.Flags().StringVar(&id, "id", "", "Workflow (request) id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newWorkflowsCancelCommand() *cobra.Command {
	var (
		api string
		id  string
	)
	cmd := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel a non-terminal workflow",
		RunE: func(cmd *cobra.Command, args []string) error {
			return restPost(cmd.Context(), api, "/workflows/"+id+"/cancel", nil, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&api, "api", "http://127.0.0.1:8080", "Base URL of the coordinator's REST surface")
	cmd.Flags().StringVar(&id, "id", "", "Workflow (request) id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newTasksCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Inspect and requeue due pending tasks via the DBOS gRPC service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newTasksListDueCommand())
	cmd.AddCommand(newTasksReplayCommand())
	return cmd
}

func newTasksListDueCommand() *cobra.Command {
	var dbosAddr string
	cmd := &cobra.Command{
		Use:   "list-due",
		Short: "List pending tasks whose scheduled time has passed",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, conn, err := dialDBOS(dbosAddr)
			if err != nil {
				return err
			}
			defer conn.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			resp, err := client.ListDueTasks(ctx, &dbosapi.ListDueTasksRequest{Timestamp: time.Now().Unix()})
			if err != nil {
				return err
			}
			if resp.Error != "" {
				return fmt.Errorf("%s", resp.Error)
			}
			return printJSON(cmd.OutOrStdout(), resp.Tasks)
		},
	}
	cmd.Flags().StringVar(&dbosAddr, "dbos", "127.0.0.1:50051", "Address of the DBOS gRPC service")
	return cmd
}

// newTasksReplayCommand nacks every pending task that ListDueTasks reports
// as due, with retry_delay 0, so it is rescheduled for now. Each nack counts
// as a retry, so a task past the retry ceiling is dead-lettered instead;
// tasks already in the dead-letter set are not listed and not replayed.
func newTasksReplayCommand() *cobra.Command {
	var dbosAddr string
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Requeue every currently-due task for immediate redelivery",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, conn, err := dialDBOS(dbosAddr)
			if err != nil {
				return err
			}
			defer conn.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			now := time.Now().Unix()

			due, err := client.ListDueTasks(ctx, &dbosapi.ListDueTasksRequest{Timestamp: now})
			if err != nil {
				return err
			}
			if due.Error != "" {
				return fmt.Errorf("%s", due.Error)
			}

			replayed := 0
			for _, task := range due.Tasks {
				if _, err := client.NackTask(ctx, &dbosapi.NackTaskRequest{TaskID: task.ID, RetryDelay: 0, Timestamp: now}); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "replay %s: %v\n", task.ID, err)
					continue
				}
				replayed++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "replayed %d of %d due tasks\n", replayed, len(due.Tasks))
			return nil
		},
	}
	cmd.Flags().StringVar(&dbosAddr, "dbos", "127.0.0.1:50051", "Address of the DBOS gRPC service")
	return cmd
}

func dialDBOS(addr string) (dbosapi.DBOSClient, *grpc.ClientConn, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, fmt.Errorf("dial dbos: %w", err)
	}
	return dbosapi.NewDBOSClient(conn), conn, nil
}

func restGet(ctx context.Context, baseURL, path string, out io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+path, nil)
	if err != nil {
		return err
	}
	return doRequest(req, out)
}

func restPost(ctx context.Context, baseURL, path string, body []byte, out io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(baseURL, "/")+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return doRequest(req, out)
}

func doRequest(req *http.Request, out io.Writer) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(data)))
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "", "  "); err != nil {
		_, werr := out.Write(data)
		return werr
	}
	pretty.WriteByte('\n')
	_, err = out.Write(pretty.Bytes())
	return err
}

func printJSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}
