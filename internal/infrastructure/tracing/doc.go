/*
Package tracing provides lightweight request tracing.

Each HTTP request gets a span; the trace continues across services through
the X-Trace-ID and X-Span-ID headers, which the client SDK injects with
Inject. Finished spans are logged by a background collector at debug level,
or at error level when the span failed.

	tracer := tracing.New("termhost", logger)
	defer tracer.Close()
	router.Use(tracing.HTTPMiddleware(tracer))

	span, ctx := tracer.StartSpan(ctx, "terminal.exec_wait")
	defer func() {
		span.Finish()
		tracer.Submit(span)
	}()
*/
package tracing
