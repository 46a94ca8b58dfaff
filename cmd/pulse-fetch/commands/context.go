package commands

import "context"

type appKey struct{}

func withApp(ctx context.Context, app *App) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, appKey{}, app)
}

func appFrom(ctx context.Context) *App {
	app, _ := ctx.Value(appKey{}).(*App)
	return app
}
