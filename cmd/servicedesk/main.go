// Точка входа servicedesk — REST API учёта заявок на обслуживание.
// Подкоманды: serve (HTTP-сервер), migrate, create-user, flush-tokens, version.
package main

import (
	"context"
	"os"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
