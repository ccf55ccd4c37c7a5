package main

import (
	"crypto/subtle"

	"github.com/rs/zerolog/log"
)

// Relay routes validated client events through the Registry: room fan-out,
// observer mirroring, admin login and the global reset.
type Relay struct {
	reg    *Registry
	secret string
}

func NewRelay(reg *Registry, secret string) *Relay {
	return &Relay{reg: reg, secret: secret}
}

// Dispatch handles one decoded client event. Invalid events produce an error
// event back to the sender; the connection stays up.
func (r *Relay) Dispatch(s Session, ev ClientEvent) {
	if err := ev.validate(); err != nil {
		s.Send(ServerEvent{Type: evError, Reason: err.Error()})
		return
	}
	switch ev.Type {
	case evJoinRoom:
		r.reg.JoinRoom(s, ev.Room)
	case evLeaveRoom:
		r.reg.LeaveRoom(s, ev.Room)
	case evChat:
		r.Send(s, ev.Room, SanitizeNickname(ev.Nickname), SanitizeMessage(ev.Message), kindText)
	case evImage:
		r.Send(s, ev.Room, SanitizeNickname(ev.Nickname), ev.Image, kindImage)
	case evAdminLogin:
		if !r.AdminLogin(s, ev.Secret) {
			log.Warn().Str("session", s.ID()).Msg("[relay] admin login rejected")
		}
	case evAdminReset:
		if !r.reg.IsObserver(s) {
			s.Send(ServerEvent{Type: evError, Reason: "admin privileges required"})
			return
		}
		r.ResetAll()
	}
}

// Send fans the payload out to every other member of room, then mirrors a
// tagged copy to the whole observer set. The sender is excluded from the
// room delivery but not from the observer copy. Senders need not have
// joined the room they emit into; that permissiveness is deliberate.
func (r *Relay) Send(sender Session, room, nickname, payload, kind string) {
	peer := ServerEvent{Type: evChat, Nickname: nickname, Message: payload}
	if kind == kindImage {
		peer = ServerEvent{Type: evImage, Nickname: nickname, Image: payload}
	}
	for _, s := range r.reg.MembersOf(room) {
		if s.ID() == sender.ID() {
			continue
		}
		s.Send(peer)
	}

	tagged := ServerEvent{Type: evAdminLog, Room: room, Nickname: nickname, Message: payload, Kind: kind}
	for _, o := range r.reg.Observers() {
		o.Send(tagged)
	}
}

// AdminLogin promotes the session when the supplied secret matches the
// configured one. A wrong secret does nothing: no lockout, no rate limit.
func (r *Relay) AdminLogin(s Session, secret string) bool {
	if r.secret == "" {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(secret), []byte(r.secret)) != 1 {
		return false
	}
	r.reg.Promote(s)
	log.Info().Str("session", s.ID()).Msg("[relay] observer promoted")
	return true
}

// ResetAll forcibly terminates every registered session, admin or not.
// Sessions are unregistered first so the registry is empty immediately;
// the later transport-close unregister is a no-op.
func (r *Relay) ResetAll() {
	all := r.reg.AllSessions()
	log.Info().Int("sessions", len(all)).Msg("[relay] admin reset")
	for _, s := range all {
		r.reg.Unregister(s)
		s.Kick("server reset by admin")
	}
}
