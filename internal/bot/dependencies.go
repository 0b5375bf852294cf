package bot

import "context"

// Handler defines the interface for all update handlers in the system
type Handler interface {
	Handle(ctx context.Context, u *Update, chat *Chat, user *User) (proceed bool, err error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, u *Update, chat *Chat, user *User) (bool, error)

func (f HandlerFunc) Handle(ctx context.Context, u *Update, chat *Chat, user *User) (bool, error) {
	return f(ctx, u, chat, user)
}
