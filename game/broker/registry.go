package broker

// Registry maps a session token to the opponent of the token's holder.
// Every active session has exactly two entries. Not safe for concurrent use.
type Registry struct {
	entries  map[Token]*Handle
	newToken func() Token
}

// NewRegistry creates an empty registry that issues tokens with gen.
// A nil gen falls back to NewToken.
func NewRegistry(gen func() Token) *Registry {
	if gen == nil {
		gen = NewToken
	}
	return &Registry{
		entries:  make(map[Token]*Handle),
		newToken: gen,
	}
}

// IssueSession generates two distinct tokens unused by any live session
func (r *Registry) IssueSession() (Token, Token) {
	a := r.freshToken("")
	b := r.freshToken(a)
	return a, b
}

func (r *Registry) freshToken(avoid Token) Token {
	for {
		t := r.newToken()
		if t == "" || t == avoid {
			continue
		}
		if _, taken := r.entries[t]; taken {
			continue
		}
		return t
	}
}

// Pair installs ta -> b and tb -> a and hands each side its token
func (r *Registry) Pair(a *Handle, ta Token, b *Handle, tb Token) {
	r.entries[ta] = b
	r.entries[tb] = a
	a.token = ta
	b.token = tb
}

// ResolveOpponent returns the opponent of the holder of own
func (r *Registry) ResolveOpponent(own Token) (*Handle, bool) {
	if own == "" {
		return nil, false
	}
	opp, ok := r.entries[own]
	return opp, ok
}

// Teardown removes both entries of the session own belongs to and clears
// both tokens. It returns the opponent, if the session was still live.
// Calling it again for either token is a no-op.
func (r *Registry) Teardown(own Token) (*Handle, bool) {
	opp, ok := r.ResolveOpponent(own)
	if !ok {
		return nil, false
	}
	delete(r.entries, own)

	if opp.token != "" {
		if owner, ok := r.entries[opp.token]; ok {
			if owner.token == own {
				owner.token = ""
			}
			delete(r.entries, opp.token)
		}
	}
	opp.token = ""
	return opp, true
}

// Len returns the number of registry entries (two per session)
func (r *Registry) Len() int {
	return len(r.entries)
}

// Sessions returns the number of active sessions
func (r *Registry) Sessions() int {
	return len(r.entries) / 2
}
