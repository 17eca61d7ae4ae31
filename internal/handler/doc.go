// Package handler implements the HTTP API of the print server.
//
// # Handlers
//
// PrinterHandler serves the printer endpoints:
//
//	GET    /health                        liveness and queue names
//	GET    /printers                      configured queues with state
//	POST   /print-raw                     submit raw device bytes
//	GET    /api/printers/{name}/readiness readiness check, ?remediate=
//	GET    /api/printers/{name}/jobs      queued jobs
//	DELETE /api/jobs/{id}                 cancel a job
//	POST   /api/discover                  run a reconciliation pass
//	GET    /api/registry                  identity records
//	GET    /api/history                   action and dispatch journal
//
// /print-raw takes the target in ?printer= (alias ?printer_name=, default
// printer_1) and the bytes in ?base64=, ?hex= or the request body.
//
// # Response Format
//
// Success responses carry "success": true. Errors return
// {success, error, detail, type} where error is the message shown to
// operators. Dispatch failures add the readiness reason and map not_found
// to 404 and everything else to 503.
//
// # Middleware
//
// Chain composes Recover, CORS and Logger. Logger passes Flush through so
// the /events stream works behind it.
package handler
