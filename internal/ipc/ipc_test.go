package ipc

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marvin.sock")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv, err := StartServer(ctx, path, func(_ context.Context, msg ControlMessage) Reply {
		switch msg.Cmd {
		case CmdSay:
			return Reply{Text: "ouvi: " + msg.Text}
		default:
			return Reply{Error: "comando desconhecido: " + msg.Cmd}
		}
	})
	require.NoError(t, err)
	assert.Equal(t, path, srv.Addr())

	sendCtx, sendCancel := context.WithTimeout(ctx, 5*time.Second)
	defer sendCancel()

	reply, err := SendCommand(sendCtx, path, ControlMessage{Cmd: CmdSay, Text: "que horas são"})
	require.NoError(t, err)
	assert.Equal(t, "ouvi: que horas são", reply.Text)

	_, err = SendCommand(sendCtx, path, ControlMessage{Cmd: "dance"})
	assert.EqualError(t, err, "comando desconhecido: dance")

	cancel()
	srv.Wait()

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestServer_ReplacesStaleSocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marvin.sock")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	srv, err := StartServer(context.Background(), path, func(context.Context, ControlMessage) Reply {
		return Reply{Text: "ok"}
	})
	require.NoError(t, err)
	defer srv.Close()

	reply, err := SendCommand(context.Background(), path, ControlMessage{Cmd: CmdTrigger})
	require.NoError(t, err)
	assert.Equal(t, "ok", reply.Text)
}

func TestSendCommand_NoDaemon(t *testing.T) {
	_, err := SendCommand(context.Background(), filepath.Join(t.TempDir(), "none.sock"), ControlMessage{Cmd: CmdTrigger})
	assert.Error(t, err)
}
