package workflows

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/aeotrack/aeo-workflows/internal/models"
)

type SlackPayload struct {
	Text string `json:"text"`
}

// ReportErrorToSlack posts an error message to the monitoring alerts channel.
func ReportErrorToSlack(err error) error {
	if err == nil {
		return nil
	}

	webhookURL := os.Getenv("SLACK_WEBHOOK_URL")
	if webhookURL == "" {
		return errors.New("SLACK_WEBHOOK_URL environment variable is not set")
	}

	message := fmt.Sprintf(
		":rotating_light: *Monitoring Pipeline Error*\n"+
			"*Time:* %s\n"+
			"*Error:* ```%s```",
		time.Now().UTC().Format(time.RFC3339),
		err.Error(),
	)

	payload := SlackPayload{
		Text: message,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequest("POST", webhookURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}

	return nil
}

// ReportRunFailureToSlack reports a run whose failure rate crossed the
// alerting threshold.
func ReportRunFailureToSlack(pipeline string, summary *models.RunSummary) error {
	if summary == nil {
		return nil
	}

	return ReportErrorToSlack(fmt.Errorf(
		"run failure rate too high: pipeline=%s successful=%d failed=%d rate=%.1f%%",
		pipeline,
		summary.Successful,
		summary.Failed,
		summary.FailureRate()*100,
	))
}
