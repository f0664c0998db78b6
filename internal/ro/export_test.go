package ro

import (
	"context"
	"os"

	"github.com/samber/ro"
)

func WaitForSignal(ctx context.Context, source ro.Observable[os.Signal]) (os.Signal, error) {
	return waitForSignal(ctx, source)
}
