// Package api handles incoming HTTP requests for tasks. Handlers read the
// owner placed in the context by the auth middleware, validate bodies with
// internal/validation and delegate to the task and status services. All
// errors go through HandleAPIError so the status code and client message
// are decided in one place.
package api
