// Package httpserver runs the storefront HTTP surfaces (the host application
// and the basket remote) with graceful shutdown and a readiness handler.
//
//	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, router); err != nil {
//		log.Error("server failed", logger.Error(err))
//	}
package httpserver
