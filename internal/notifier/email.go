package notifier

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// Email 通过 SMTP 推送纯文本邮件。465 端口走隐式 TLS，其余端口走 STARTTLS。
type Email struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
	Subject  string
}

func NewEmail(host string, port int, username, password, from string, to []string) *Email {
	return &Email{
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
		From:     from,
		To:       to,
		Subject:  "fxlab 交易通知",
	}
}

func (e *Email) SendText(text string) error {
	if e.Host == "" || e.From == "" || len(e.To) == 0 {
		return fmt.Errorf("邮件配置不完整")
	}
	addr := fmt.Sprintf("%s:%d", e.Host, e.Port)
	msg := e.buildMessage(text)

	if e.Port == 465 {
		return e.sendImplicitTLS(addr, msg)
	}
	auth := e.auth()
	if err := smtp.SendMail(addr, auth, e.From, e.To, msg); err != nil {
		return fmt.Errorf("发送邮件失败: %w", err)
	}
	return nil
}

func (e *Email) auth() smtp.Auth {
	if e.Username == "" {
		return nil
	}
	return smtp.PlainAuth("", e.Username, e.Password, e.Host)
}

func (e *Email) buildMessage(text string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", e.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(e.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", e.Subject)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(text)
	b.WriteString("\r\n")
	return []byte(b.String())
}

func (e *Email) sendImplicitTLS(addr string, msg []byte) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: e.Host})
	if err != nil {
		return fmt.Errorf("连接 SMTP 失败: %w", err)
	}
	defer conn.Close()

	host, _, _ := net.SplitHostPort(addr)
	client, err := smtp.NewClient(conn, host)
	if err != nil {
		return fmt.Errorf("建立 SMTP 会话失败: %w", err)
	}
	defer client.Close()

	if auth := e.auth(); auth != nil {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP 认证失败: %w", err)
		}
	}
	if err := client.Mail(e.From); err != nil {
		return err
	}
	for _, rcpt := range e.To {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}
