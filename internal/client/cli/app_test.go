package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gophauth/internal/client/client"
	"github.com/dmitrijs2005/gophauth/internal/client/config"
	"github.com/dmitrijs2005/gophauth/internal/common"
	pb "github.com/dmitrijs2005/gophauth/internal/rpc"
)

type fakeClient struct {
	mu sync.Mutex

	pingErr     error
	registerErr error
	loginErr    error
	meErr       error

	token    string
	closed   bool
	regEmail string
	regName  string
	regPass  string
	loginPw  string
	pings    int
}

func (f *fakeClient) Close() error { f.closed = true; return nil }

func (f *fakeClient) Register(ctx context.Context, email, name, password string) (*pb.User, error) {
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	f.regEmail, f.regName, f.regPass = email, name, password
	return &pb.User{ID: "1", Email: email, Name: name}, nil
}

func (f *fakeClient) Login(ctx context.Context, email, password string) error {
	if f.loginErr != nil {
		return f.loginErr
	}
	f.loginPw = password
	f.token = "tok"
	return nil
}

func (f *fakeClient) Me(ctx context.Context) (*pb.User, error) {
	if f.meErr != nil {
		return nil, f.meErr
	}
	if f.token == "" {
		return nil, client.ErrNotLoggedIn
	}
	return &pb.User{ID: "1", Email: "alice@example.com", Name: "Alice",
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}, nil
}

func (f *fakeClient) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pings++
	return f.pingErr
}

func (f *fakeClient) Logout()        { f.token = "" }
func (f *fakeClient) LoggedIn() bool { return f.token != "" }

func testConfig() *config.Config {
	return &config.Config{
		ServerEndpointAddr:  "127.0.0.1:0",
		OnlineCheckInterval: time.Hour,
		RequestTimeout:      time.Second,
	}
}

func stubPasswords(t *testing.T, pws ...string) {
	t.Helper()
	old := readPassword
	t.Cleanup(func() { readPassword = old })
	readPassword = func(int) ([]byte, error) {
		if len(pws) == 0 {
			return nil, errors.New("no more passwords")
		}
		p := pws[0]
		pws = pws[1:]
		return []byte(p), nil
	}
}

func TestApp_Register(t *testing.T) {
	stubPasswords(t, "password123", "password123")
	fc := &fakeClient{}
	var out bytes.Buffer
	a := newApp(testConfig(), fc, strings.NewReader("alice@example.com\nAlice\n"), &out)

	require.NoError(t, a.Register(context.Background()))
	assert.Equal(t, "alice@example.com", fc.regEmail)
	assert.Equal(t, "Alice", fc.regName)
	assert.Equal(t, "password123", fc.regPass)
	assert.Contains(t, out.String(), "Registered alice@example.com (id 1)")
}

func TestApp_Register_PasswordMismatch(t *testing.T) {
	stubPasswords(t, "password123", "password124")
	fc := &fakeClient{}
	a := newApp(testConfig(), fc, strings.NewReader("alice@example.com\nAlice\n"), &bytes.Buffer{})

	err := a.Register(context.Background())
	assert.ErrorIs(t, err, errPasswordMismatch)
	assert.Empty(t, fc.regEmail)
}

func TestApp_Register_Duplicate(t *testing.T) {
	stubPasswords(t, "password123", "password123")
	fc := &fakeClient{registerErr: common.ErrorDuplicateEmail}
	a := newApp(testConfig(), fc, strings.NewReader("alice@example.com\nAlice\n"), &bytes.Buffer{})

	err := a.Register(context.Background())
	require.Error(t, err)
	assert.Equal(t, "email already registered", err.Error())
}

func TestApp_LoginWhoAmILogout(t *testing.T) {
	stubPasswords(t, "password123")
	fc := &fakeClient{}
	var out bytes.Buffer
	a := newApp(testConfig(), fc, strings.NewReader("alice@example.com\n"), &out)

	require.NoError(t, a.Login(context.Background()))
	assert.Equal(t, "password123", fc.loginPw)
	assert.True(t, a.isLoggedIn())
	assert.Equal(t, "(alice@example.com)", a.getStatus())

	require.NoError(t, a.WhoAmI(context.Background()))
	assert.Contains(t, out.String(), "email:   alice@example.com")
	assert.Contains(t, out.String(), "name:    Alice")

	require.NoError(t, a.Logout(context.Background()))
	assert.False(t, a.isLoggedIn())
	assert.Equal(t, "", a.getStatus())
}

func TestApp_Login_InvalidCredentials(t *testing.T) {
	stubPasswords(t, "wrongpass")
	fc := &fakeClient{loginErr: common.ErrorInvalidCredentials}
	a := newApp(testConfig(), fc, strings.NewReader("alice@example.com\n"), &bytes.Buffer{})

	err := a.Login(context.Background())
	require.Error(t, err)
	assert.Equal(t, "invalid credentials", err.Error())
	assert.False(t, a.isLoggedIn())
}

func TestApp_WhoAmI_SessionExpired(t *testing.T) {
	fc := &fakeClient{token: "tok", meErr: client.ErrUnauthorized}
	a := newApp(testConfig(), fc, strings.NewReader(""), &bytes.Buffer{})
	a.userEmail = "alice@example.com"

	err := a.WhoAmI(context.Background())
	require.Error(t, err)
	assert.False(t, a.isLoggedIn())
	assert.Empty(t, a.userEmail)
}

func TestApp_WhoAmI_NotLoggedIn(t *testing.T) {
	a := newApp(testConfig(), &fakeClient{}, strings.NewReader(""), &bytes.Buffer{})
	err := a.WhoAmI(context.Background())
	require.Error(t, err)
	assert.Equal(t, "not logged in", err.Error())
}

func TestDescribe(t *testing.T) {
	other := errors.New("other")
	assert.Equal(t, "server unavailable, try again later", describe(client.ErrUnavailable).Error())
	assert.Same(t, other, describe(other))
}

func TestApp_CheckOnline(t *testing.T) {
	fc := &fakeClient{}
	var out bytes.Buffer
	a := newApp(testConfig(), fc, strings.NewReader(""), &out)

	a.checkOnline(context.Background())
	assert.Equal(t, ModeOnline, a.getMode())
	assert.Equal(t, "(online)", a.getStatus())

	fc.mu.Lock()
	fc.pingErr = client.ErrUnavailable
	fc.mu.Unlock()
	a.checkOnline(context.Background())
	assert.Equal(t, ModeOffline, a.getMode())
	assert.Contains(t, out.String(), "[server is offline]")
}

func TestApp_StartOnlineStatusWatcher_StopsOnCancel(t *testing.T) {
	fc := &fakeClient{}
	a := newApp(testConfig(), fc, strings.NewReader(""), &bytes.Buffer{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.StartOnlineStatusWatcher(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool {
		fc.mu.Lock()
		defer fc.mu.Unlock()
		return fc.pings >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestApp_Run_ExitClosesClient(t *testing.T) {
	fc := &fakeClient{}
	var out bytes.Buffer
	a := newApp(testConfig(), fc, strings.NewReader("help\nexit\n"), &out)

	require.NoError(t, a.Run(context.Background()))
	assert.True(t, fc.closed)
	assert.Contains(t, out.String(), "Bye!")
}
