package auth

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2"
)

// ErrEmptyToken is returned when no usable token was supplied.
var ErrEmptyToken = errors.New("empty auth token")

// Bearer attaches an access token to outgoing requests.
type Bearer struct {
	src oauth2.TokenSource
}

// NewStatic wraps a fixed token, typically one copied from a browser session.
func NewStatic(token string) (*Bearer, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrEmptyToken
	}
	return &Bearer{src: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})}, nil
}

// NewClientCred fetches tokens from the configured token endpoint and
// refreshes them when they expire.
func NewClientCred(ctx context.Context, conf Conf) *Bearer {
	cc := conf.toOauth2Config()
	return &Bearer{src: oauth2.ReuseTokenSource(nil, cc.TokenSource(ctx))}
}

// GetToken returns the current access token.
func (b *Bearer) GetToken() (string, error) {
	tok, err := b.src.Token()
	if err != nil {
		return "", fmt.Errorf("failed to get token: %w", err)
	}
	return tok.AccessToken, nil
}

// SetAuthHeader sets the Authorization header on r.
func (b *Bearer) SetAuthHeader(r *http.Request) error {
	tok, err := b.src.Token()
	if err != nil {
		return fmt.Errorf("failed to get token: %w", err)
	}
	tok.SetAuthHeader(r)
	return nil
}

// ReadTokenFile reads a token from path, trimming surrounding whitespace.
func ReadTokenFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}
	tok := strings.TrimSpace(string(data))
	if tok == "" {
		return "", fmt.Errorf("%s: %w", path, ErrEmptyToken)
	}
	return tok, nil
}

// PromptToken writes prompt to out and reads a single line from in.
func PromptToken(in io.Reader, out io.Writer, prompt string) (string, error) {
	if _, err := fmt.Fprint(out, prompt); err != nil {
		return "", err
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read token: %w", err)
	}
	tok := strings.TrimSpace(line)
	if tok == "" {
		return "", ErrEmptyToken
	}
	return tok, nil
}

// Resolve picks the token source for a command: client credentials when
// configured, then the token file, then an interactive prompt.
func Resolve(ctx context.Context, conf Conf, tokenFile string, in io.Reader, out io.Writer) (*Bearer, error) {
	if conf.Enabled() {
		return NewClientCred(ctx, conf), nil
	}
	var (
		tok string
		err error
	)
	if tokenFile != "" {
		tok, err = ReadTokenFile(tokenFile)
	} else {
		tok, err = PromptToken(in, out, "Collaborate auth token: ")
	}
	if err != nil {
		return nil, err
	}
	return NewStatic(tok)
}
