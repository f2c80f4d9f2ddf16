package domain

import "context"

// SlotPool limita quantas requests do proxy ficam em voo ao mesmo tempo.
//
// O release devolvido pode ser chamado mais de uma vez; só a primeira conta.
type SlotPool interface {
	Acquire(ctx context.Context) (release func(), ok bool)
	TryAcquire() (release func(), ok bool)
	InUse() int
	Cap() int
}
