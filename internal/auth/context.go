package auth

import "context"

type contextKey string

const subjectKey contextKey = "subject"

func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey, subject)
}

func SubjectFrom(ctx context.Context) string {
	if s, _ := ctx.Value(subjectKey).(string); s != "" {
		return s
	}
	return ""
}
