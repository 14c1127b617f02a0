package email

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"net/textproto"
	"strconv"
	"strings"
	"testing"
	"time"
)

type detail struct{ Key, Value string }

func TestRenderEscapesUserInput(t *testing.T) {
	data := struct {
		ServiceLabel     string
		PaymentStatus    string
		FullName         string
		Email            string
		Phone            string
		Country          string
		PriceReference   string
		PriceSettlement  string
		PaymentReference string
		Details          []detail
	}{
		ServiceLabel:  "Keynote Speaking",
		PaymentStatus: "n/a",
		FullName:      `<script>alert("x")</script>`,
		Email:         "ama@example.com",
		Phone:         "0240000000",
		Country:       "Ghana",
		Details:       []detail{{"theme_expectation", "<b>bold</b>"}},
	}

	html, err := Render("booking_admin", data)
	if err != nil {
		t.Fatal(err)
	}

	if strings.Contains(html, "<script>") || strings.Contains(html, "<b>bold</b>") {
		t.Fatal("user input rendered unescaped")
	}
	if !strings.Contains(html, "INQUIRY") {
		t.Fatal("missing inquiry badge")
	}
	if !strings.Contains(html, "Theme Expectation:") {
		t.Fatal("details key not humanized")
	}
}

func TestSendWithoutConfiguration(t *testing.T) {
	m := New("School of Presence <bookings@example.com>", "resend", "", "", 587, 0)

	if err := m.Send(context.Background(), "a@example.com", "hi", "<p>hi</p>"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestMessageHeaders(t *testing.T) {
	msg := string(message("School <from@example.com>", "to@example.com", "New Booking:\r\nBcc: x@evil.com", "<p>body</p>"))

	if strings.Contains(msg, "\r\nBcc:") {
		t.Fatal("subject allowed header injection")
	}
	if !strings.HasSuffix(msg, "\r\n\r\n<p>body</p>") {
		t.Fatalf("body not separated from headers: %q", msg)
	}
	if got := address("School <from@example.com>"); got != "from@example.com" {
		t.Fatalf("address = %q", got)
	}
}

func listen(t *testing.T) (net.Listener, string, int) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })

	host, port, _ := net.SplitHostPort(ln.Addr().String())
	p, _ := strconv.Atoi(port)
	return ln, host, p
}

func TestSendGivesUpOnHungServer(t *testing.T) {
	ln, host, port := listen(t)

	hungUp := make(chan struct{})
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		io.Copy(io.Discard, conn)
		close(hungUp)
	}()

	m := New("School <from@example.com>", "resend", "secret", host, port, 100*time.Millisecond)

	err := m.Send(context.Background(), "to@example.com", "hi", "<p>hi</p>")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected a deadline error, got %v", err)
	}

	select {
	case <-hungUp:
	case <-time.After(2 * time.Second):
		t.Fatal("connection to the silent server left open")
	}
}

func TestSendDelivers(t *testing.T) {
	ln, host, port := listen(t)

	got := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		tp := textproto.NewConn(conn)
		tp.PrintfLine("220 localhost ESMTP")

		var rcpt string
		for {
			line, err := tp.ReadLine()
			if err != nil {
				return
			}
			switch cmd := strings.ToUpper(strings.Fields(line)[0]); cmd {
			case "EHLO", "HELO", "MAIL":
				tp.PrintfLine("250 ok")
			case "RCPT":
				rcpt = line
				tp.PrintfLine("250 ok")
			case "DATA":
				tp.PrintfLine("354 go ahead")
				body, _ := tp.ReadDotBytes()
				got <- rcpt + "\n" + string(body)
				tp.PrintfLine("250 queued")
			case "QUIT":
				tp.PrintfLine("221 bye")
				return
			default:
				tp.PrintfLine("502 unsupported")
			}
		}
	}()

	m := New("School <from@example.com>", "resend", "secret", host, port, 2*time.Second)
	if err := m.Send(context.Background(), "to@example.com", "New Booking", "<p>hello</p>"); err != nil {
		t.Fatalf("send: %v", err)
	}

	msg := <-got
	r := bufio.NewScanner(strings.NewReader(msg))
	r.Scan()
	if r.Text() != "RCPT TO:<to@example.com>" {
		t.Fatalf("recipient line %q", r.Text())
	}
	if !strings.Contains(msg, "Subject: New Booking") || !strings.Contains(msg, "<p>hello</p>") {
		t.Fatalf("unexpected message %q", msg)
	}
}
