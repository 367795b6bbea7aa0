package settlement

import (
	"math/rand/v2"
	"testing"

	"kakeibo/internal/core"
)

func rec(amount int64, payer core.Person, split core.SplitType) core.ExpenseRecord {
	r, err := core.NewExpenseRecord(core.NewDate(2025, 3, 10), "食費", core.Money{Minor: amount}, "", payer, split)
	if err != nil {
		panic(err)
	}
	return r
}

func TestComputeScenarios(t *testing.T) {
	cases := []struct {
		name      string
		records   []core.ExpenseRecord
		paidA     int64
		paidB     int64
		diff      int64
		transfer  int64
		direction Direction
	}{
		{
			name:    "A paid more",
			records: []core.ExpenseRecord{rec(1000, core.PersonA, core.Shared), rec(600, core.PersonB, core.Shared)},
			paidA:   1000, paidB: 600, diff: 400, transfer: 200, direction: BtoA,
		},
		{
			name:    "even",
			records: []core.ExpenseRecord{rec(500, core.PersonA, core.Shared), rec(500, core.PersonB, core.Shared)},
			paidA:   500, paidB: 500, diff: 0, transfer: 0, direction: None,
		},
		{
			name: "personal record ignored",
			records: []core.ExpenseRecord{
				rec(1000, core.PersonA, core.Shared),
				rec(600, core.PersonB, core.Shared),
				rec(5000, core.PersonA, core.PersonalA),
			},
			paidA: 1000, paidB: 600, diff: 400, transfer: 200, direction: BtoA,
		},
		{
			name:    "B paid more",
			records: []core.ExpenseRecord{rec(300, core.PersonA, core.Shared), rec(1000, core.PersonB, core.Shared)},
			paidA:   300, paidB: 1000, diff: -700, transfer: 350, direction: AtoB,
		},
		{
			name:      "empty",
			direction: None,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Compute(tc.records)
			if got.PaidByA.Minor != tc.paidA || got.PaidByB.Minor != tc.paidB {
				t.Fatalf("paid A=%d B=%d, want A=%d B=%d", got.PaidByA.Minor, got.PaidByB.Minor, tc.paidA, tc.paidB)
			}
			if got.Difference.Minor != tc.diff || got.Transfer.Minor != tc.transfer || got.Direction != tc.direction {
				t.Fatalf("diff=%d transfer=%d dir=%s, want diff=%d transfer=%d dir=%s",
					got.Difference.Minor, got.Transfer.Minor, got.Direction, tc.diff, tc.transfer, tc.direction)
			}
		})
	}
}

func TestComputeOddDifferenceLeavesOneUnsettled(t *testing.T) {
	got := Compute([]core.ExpenseRecord{rec(1001, core.PersonA, core.Shared)})
	if got.Transfer.Minor != 500 || got.Unsettled.Minor != 1 || got.Direction != BtoA {
		t.Fatalf("unexpected result %+v", got)
	}
	if p, ok := got.Debtor(); !ok || p != core.PersonB {
		t.Fatalf("B should owe, got %s %v", p, ok)
	}
}

func TestComputeAtAmountCeiling(t *testing.T) {
	max := core.MaxAmount.Minor
	got := Compute([]core.ExpenseRecord{
		rec(max, core.PersonA, core.Shared),
		rec(max, core.PersonA, core.Shared),
		rec(1, core.PersonA, core.Shared),
	})
	if got.PaidByA.Minor != 2*max+1 || got.Direction != BtoA {
		t.Fatalf("unexpected result %+v", got)
	}
	if got.Transfer.Minor != max || got.Unsettled.Minor != 1 {
		t.Fatalf("transfer=%d unsettled=%d, want %d and 1", got.Transfer.Minor, got.Unsettled.Minor, max)
	}

	if _, err := core.NewExpenseRecord(core.NewDate(2025, 3, 10), "食費", core.Money{Minor: max + 1}, "", core.PersonA, core.Shared); err == nil {
		t.Fatal("a record above the ceiling should be rejected")
	}
}

func TestComputeIgnoresPersonalOfEitherPayer(t *testing.T) {
	base := []core.ExpenseRecord{rec(800, core.PersonA, core.Shared), rec(200, core.PersonB, core.Shared)}
	want := Compute(base)
	noisy := append([]core.ExpenseRecord{}, base...)
	noisy = append(noisy,
		rec(9000, core.PersonA, core.PersonalB),
		rec(7000, core.PersonB, core.PersonalA),
		rec(3000, core.PersonB, core.PersonalB),
	)
	if got := Compute(noisy); got != want {
		t.Fatalf("personal records changed the result: %+v vs %+v", got, want)
	}
}

func swapPayers(records []core.ExpenseRecord) []core.ExpenseRecord {
	out := make([]core.ExpenseRecord, len(records))
	for i, r := range records {
		r.Payer = r.Payer.Other()
		out[i] = r
	}
	return out
}

func randomRecords(r *rand.Rand, n int) []core.ExpenseRecord {
	splits := []core.SplitType{core.Shared, core.Shared, core.PersonalA, core.PersonalB}
	out := make([]core.ExpenseRecord, n)
	for i := range out {
		payer := core.PersonA
		if r.IntN(2) == 1 {
			payer = core.PersonB
		}
		out[i] = rec(r.Int64N(20000), payer, splits[r.IntN(len(splits))])
	}
	return out
}

func opposite(d Direction) Direction {
	switch d {
	case AtoB:
		return BtoA
	case BtoA:
		return AtoB
	}
	return None
}

func TestComputeProperties(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	for i := 0; i < 200; i++ {
		records := randomRecords(r, r.IntN(12))
		got := Compute(records)

		swapped := Compute(swapPayers(records))
		if swapped.Transfer != got.Transfer || swapped.Direction != opposite(got.Direction) {
			t.Fatalf("swap not symmetric: %+v vs %+v", got, swapped)
		}

		shuffled := append([]core.ExpenseRecord{}, records...)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		if again := Compute(shuffled); again != got {
			t.Fatalf("order changed the result: %+v vs %+v", got, again)
		}

		d := got.Difference.Minor
		if d < 0 {
			d = -d
		}
		if got.Transfer.Minor != d/2 || got.Transfer.Minor*2+got.Unsettled.Minor != d {
			t.Fatalf("transfer %d is not floor(|%d|/2)", got.Transfer.Minor, got.Difference.Minor)
		}
	}
}

func TestForPeriodFiltersBySelectedMonth(t *testing.T) {
	march := rec(1000, core.PersonA, core.Shared)
	april, _ := core.NewExpenseRecord(core.NewDate(2025, 4, 1), "食費", core.Money{Minor: 4000}, "", core.PersonB, core.Shared)
	got := ForPeriod([]core.ExpenseRecord{march, april}, core.Period{Year: 2025, Month: 3})
	if got.PaidByA.Minor != 1000 || got.PaidByB.Minor != 0 || got.Transfer.Minor != 500 {
		t.Fatalf("april record leaked into march: %+v", got)
	}
	if got := ForPeriod([]core.ExpenseRecord{march}, core.Period{Year: 2025, Month: 5}); got.Direction != None {
		t.Fatalf("empty period should be settled, got %+v", got)
	}
}
