package cache

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeRedis speaks enough RESP for RedisStore: AUTH, SELECT, PING, GET and SET NX.
type fakeRedis struct {
	listener net.Listener
	password string

	mu   sync.Mutex
	data map[string][]byte
	cmds []string
}

func newFakeRedis(t *testing.T, password string) *fakeRedis {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := &fakeRedis{listener: ln, password: password, data: map[string][]byte{}}
	go srv.serve()
	t.Cleanup(func() { _ = ln.Close() })
	return srv
}

func (s *fakeRedis) addr() string { return s.listener.Addr().String() }

func (s *fakeRedis) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *fakeRedis) handle(conn net.Conn) {
	defer conn.Close()
	reader := bufio.NewReader(conn)
	authed := s.password == ""

	for {
		raw, err := readResponse(reader)
		if err != nil {
			return
		}
		parts := raw.([]interface{})
		args := make([]string, len(parts))
		for i, p := range parts {
			args[i] = string(p.([]byte))
		}
		cmd := strings.ToUpper(args[0])

		s.mu.Lock()
		s.cmds = append(s.cmds, cmd)
		s.mu.Unlock()

		var reply string
		switch {
		case cmd == "AUTH":
			if args[len(args)-1] == s.password {
				authed = true
				reply = "+OK\r\n"
			} else {
				reply = "-WRONGPASS invalid password\r\n"
			}
		case !authed:
			reply = "-NOAUTH Authentication required\r\n"
		case cmd == "SELECT":
			reply = "+OK\r\n"
		case cmd == "PING":
			reply = "+PONG\r\n"
		case cmd == "GET":
			s.mu.Lock()
			value, ok := s.data[args[1]]
			s.mu.Unlock()
			if !ok {
				reply = "$-1\r\n"
			} else {
				reply = fmt.Sprintf("$%d\r\n%s\r\n", len(value), value)
			}
		case cmd == "SET" && len(args) == 4 && strings.EqualFold(args[3], "NX"):
			s.mu.Lock()
			if _, exists := s.data[args[1]]; exists {
				reply = "$-1\r\n"
			} else {
				s.data[args[1]] = []byte(args[2])
				reply = "+OK\r\n"
			}
			s.mu.Unlock()
		default:
			reply = "-ERR unknown command\r\n"
		}

		if _, err := conn.Write([]byte(reply)); err != nil {
			return
		}
	}
}

func (s *fakeRedis) commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.cmds...)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	srv := newFakeRedis(t, "")
	store, err := NewRedisStore(RedisConfig{Address: srv.addr(), Timeout: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()

	_, found, err := store.Get(ctx, "999888777")
	require.NoError(t, err)
	require.False(t, found)

	doc := []byte(`{"organisasjonsnummer":"999888777"}`)
	require.NoError(t, store.Put(ctx, "999888777", doc))

	got, found, err := store.Get(ctx, "999888777")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, doc, got)

	srv.mu.Lock()
	_, stored := srv.data["orgcache:org:999888777"]
	srv.mu.Unlock()
	require.True(t, stored, "expected key to be namespaced")
}

func TestRedisStorePutIsInsertIfAbsent(t *testing.T) {
	srv := newFakeRedis(t, "")
	store, err := NewRedisStore(RedisConfig{Address: srv.addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "999888777", []byte(`{"v":1}`)))
	require.NoError(t, store.Put(ctx, "999888777", []byte(`{"v":2}`)))

	got, found, err := store.Get(ctx, "999888777")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, `{"v":1}`, string(got))
}

func TestRedisStoreAuthAndSelect(t *testing.T) {
	srv := newFakeRedis(t, "secret")
	store, err := NewRedisStore(RedisConfig{Address: srv.addr(), Password: "secret", DB: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Ping(context.Background()))
	require.Equal(t, []string{"AUTH", "SELECT", "PING"}, srv.commands())
}

func TestRedisStoreAuthFailure(t *testing.T) {
	srv := newFakeRedis(t, "secret")
	_, err := NewRedisStore(RedisConfig{Address: srv.addr(), Password: "wrong"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "AUTH failed")
}

func TestRedisStoreRequiresAddress(t *testing.T) {
	_, err := NewRedisStore(RedisConfig{Address: "  "})
	require.Error(t, err)
}

func TestRedisStoreErrorReplyIsSurfaced(t *testing.T) {
	srv := newFakeRedis(t, "")
	store, err := NewRedisStore(RedisConfig{Address: srv.addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	_, err = store.do(context.Background(), "FLUSHALL")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown command")

	// Error replies keep the connection usable.
	require.NoError(t, store.Ping(context.Background()))
}
