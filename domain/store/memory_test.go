package store_test

import (
	"testing"

	"github.com/warp/carwash-backoffice/domain"
	"github.com/warp/carwash-backoffice/domain/store"
	"github.com/warp/carwash-backoffice/domain/store/storetest"
)

func TestMemory_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) domain.TxStore {
		return store.NewMemory()
	})
}
