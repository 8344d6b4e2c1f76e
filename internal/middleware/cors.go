package middleware

import "github.com/go-chi/cors"

// CORS builds the cross-origin policy for the API surface. A wildcard
// origin forces credentials off, since browsers refuse the combination.
func CORS(allowedOrigins []string) cors.Options {
	// An empty list falls through to chi's allow-all behavior.
	allowCreds := len(allowedOrigins) > 0
	for _, o := range allowedOrigins {
		if o == "*" {
			allowCreds = false
		}
	}

	return cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: allowCreds,
		MaxAge:           300,
	}
}
