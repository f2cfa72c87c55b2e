package email

import (
	"context"
	"fmt"
	"net/smtp"

	"go.uber.org/zap"
)

// SMTPNotifier mails an operator when a job fails permanently. Like every
// external capability here, missing configuration is a supported mode: the
// notifier silently skips instead of erroring.
type SMTPNotifier struct {
	host   string
	port   int
	from   string
	to     string
	logger *zap.Logger
}

func NewSMTPNotifier(host string, port int, from, to string, logger *zap.Logger) *SMTPNotifier {
	return &SMTPNotifier{host: host, port: port, from: from, to: to, logger: logger}
}

func (n *SMTPNotifier) configured() bool {
	return n.host != "" && n.to != ""
}

func (n *SMTPNotifier) NotifyFailure(_ context.Context, jobID, sourceName, errorMsg string) error {
	if !n.configured() {
		return nil
	}

	addr := fmt.Sprintf("%s:%d", n.host, n.port)

	subject := fmt.Sprintf("VideoSplice - Processing Failed [Job %s]", jobID)
	body := fmt.Sprintf(
		"A video processing job failed.\r\n\r\n"+
			"Job ID: %s\r\n"+
			"Video: %s\r\n"+
			"Error: %s\r\n\r\n"+
			"-- VideoSplice",
		jobID, sourceName, errorMsg,
	)

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		n.from, n.to, subject, body,
	)

	err := smtp.SendMail(addr, nil, n.from, []string{n.to}, []byte(msg))
	if err != nil {
		n.logger.Error("failed to send failure notification email",
			zap.String("job_id", jobID),
			zap.Error(err),
		)
		return fmt.Errorf("send email: %w", err)
	}

	n.logger.Info("failure notification email sent", zap.String("job_id", jobID))
	return nil
}
