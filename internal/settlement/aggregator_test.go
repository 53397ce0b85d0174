package settlement

import (
	"testing"

	"github.com/stretchr/testify/require"

	"pokerbank/internal/models"
	"pokerbank/internal/money"
)

func TestNetPositionEmptyIsZero(t *testing.T) {
	require.Equal(t, money.Amount(0), NetPosition(models.Participant{UserID: "a"}))
}

func TestNetPositionSumsEvents(t *testing.T) {
	p := participant("a", []money.Amount{10000, 5050}, []money.Amount{20000, 1})
	require.Equal(t, money.Amount(15050), TotalBuyIns(p))
	require.Equal(t, money.Amount(20001), TotalCashOuts(p))
	require.Equal(t, money.Amount(4951), NetPosition(p))
}

func TestNetPositionIgnoresEventOrder(t *testing.T) {
	forward := participant("a", []money.Amount{100, 2500, 333}, []money.Amount{999, 1})
	reversed := participant("a", []money.Amount{333, 2500, 100}, []money.Amount{1, 999})
	require.Equal(t, NetPosition(forward), NetPosition(reversed))
	require.Equal(t, money.Amount(-1933), NetPosition(forward))
}
