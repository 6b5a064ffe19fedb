package udpnotifier

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/user/framerec/pkg/adapters/logger"
)

func TestNotifier_SendsSavedMessage(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer conn.Close()

	n, err := New(conn.LocalAddr().String(), logger.NewNoop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := n.NotifySaved(context.Background(), "/videos/video_1.mp4"); err != nil {
		t.Fatalf("NotifySaved failed: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 256)
	size, _, err := conn.ReadFrom(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got := string(buf[:size]); got != "SAVED:/videos/video_1.mp4" {
		t.Errorf("message = %q", got)
	}
}

func TestNew_Address(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"127.0.0.1:9000", "127.0.0.1:9000", false},
		{"192.168.150.67", "192.168.150.67:4210", false},
		{"localhost", "localhost:4210", false},
		{":9000", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			n, err := New(tt.in, logger.NewNoop())
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got address %s", n.addr)
				}
				return
			}
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			if n.addr != tt.want {
				t.Errorf("addr = %s, want %s", n.addr, tt.want)
			}
		})
	}
}

func TestNotifier_CancelledContext(t *testing.T) {
	n, err := New("127.0.0.1:9", logger.NewNoop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := n.NotifySaved(ctx, "x.mp4"); err == nil {
		t.Error("expected error for cancelled context")
	}
}
