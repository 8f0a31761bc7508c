package main

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/JaimeStill/vigil/internal/workitem"
)

var callFlags struct {
	callID       string
	recordingURL string
	ownerID      string
	agentID      string
	language     string
	webhookURL   string
	metadata     map[string]string
	noSave       bool
}

var callCmd = &cobra.Command{
	Use:   "call",
	Short: "Enqueue a single call for analysis",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		t, closeFn, log, err := openTarget(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		item := callItem(time.Now().UTC())
		id, err := t.submit(ctx, item)
		if err != nil {
			return err
		}

		log.WithFields(logrus.Fields{
			"call_id":    item.CallID,
			"message_id": id,
		}).Info("call enqueued")
		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	},
}

func init() {
	f := callCmd.Flags()
	f.StringVar(&callFlags.callID, "call-id", "", "Caller-supplied call identifier")
	f.StringVar(&callFlags.recordingURL, "recording-url", "", "Stereo recording URL")
	f.StringVar(&callFlags.ownerID, "owner-id", "", "Owning organization identifier")
	f.StringVar(&callFlags.agentID, "agent-id", "", "Customer agent identifier")
	f.StringVar(&callFlags.language, "language", "", "Transcription language hint")
	f.StringVar(&callFlags.webhookURL, "webhook-url", "", "Completion webhook URL")
	f.StringToStringVar(&callFlags.metadata, "metadata", nil, "Call metadata as key=value pairs")
	f.BoolVar(&callFlags.noSave, "no-save-recording", false, "Skip archiving the recording")

	for _, name := range []string{"call-id", "recording-url", "owner-id"} {
		_ = callCmd.MarkFlagRequired(name)
	}
}

func callItem(now time.Time) workitem.CallWorkItem {
	item := workitem.CallWorkItem{
		CallID:             callFlags.callID,
		StereoRecordingURL: callFlags.recordingURL,
		OwnerID:            callFlags.ownerID,
		AgentID:            callFlags.agentID,
		CreatedAt:          &now,
		Language:           callFlags.language,
		Metadata:           callFlags.metadata,
		WebhookURL:         callFlags.webhookURL,
	}
	if callFlags.noSave {
		save := false
		item.SaveRecording = &save
	}
	return item
}
