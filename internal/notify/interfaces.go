package notify

import (
	"context"

	"github.com/zawlinn/boostline-backend/pkg/enums"
)

// Notifier delivers free-text operational events to a logical channel.
// Delivery is best effort: implementations retry briefly, then drop the
// message. A Notify call never returns an error because committed ledger
// state must not depend on delivery.
type Notifier interface {
	Notify(ctx context.Context, channel enums.NotifyChannel, message string)
}
