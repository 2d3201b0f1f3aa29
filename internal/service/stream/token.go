package stream

import "TradeSync/internal/domain/repository"

type staticTokenSource struct {
	token string
}

func (s staticTokenSource) Token() (string, bool) {
	return s.token, s.token != ""
}

// StaticTokenSource yields a fixed token, typically from config.
func StaticTokenSource(token string) repository.TokenSource {
	return staticTokenSource{token: token}
}
