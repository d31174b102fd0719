package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plumeai/plume/internal/logic/memories"
	"github.com/plumeai/plume/internal/svc"
	"github.com/plumeai/plume/internal/types"
)

var extractWindow int

var extractCmd = &cobra.Command{
	Use:   "extract <conversation-id>",
	Short: "Run memory extraction over one conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig()
		if err != nil {
			return err
		}
		svcCtx, err := svc.NewServiceContext(c, Version)
		if err != nil {
			return err
		}
		defer svcCtx.Close()

		l := memories.NewMemoriesLogic(context.Background(), svcCtx)
		resp, err := l.Extract(&types.ExtractMemoriesRequest{
			ConversationID: args[0],
			Window:         extractWindow,
		})
		if err != nil {
			return err
		}
		fmt.Printf("inserted %d, skipped %d\n", resp.InsertedCount, resp.SkippedCount)
		return nil
	},
}

func init() {
	extractCmd.Flags().IntVar(&extractWindow, "window", 0, "number of recent turns to analyze (0 = default)")
}
