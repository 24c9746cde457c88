package course

import "fmt"

// Certificate pricing in rupees. Bulk orders earn a per-certificate discount
// and the total is capped.
const (
	PriceSingle  = 99
	bulkDiscount = 20
	bulkPriceCap = 199
)

// BulkPrice returns the total price for certifying n completed modules at
// once: each certificate after the first is discounted, and the total never
// exceeds the cap.
func BulkPrice(n int) int {
	if n <= 0 {
		return 0
	}
	price := PriceSingle*n - bulkDiscount*(n-1)
	if price > bulkPriceCap {
		return bulkPriceCap
	}
	return price
}

// Savings returns the amount saved by a bulk order of n certificates versus
// buying them individually.
func Savings(n int) int {
	return PriceSingle*n - BulkPrice(n)
}

// OutOfOrderError reports an attempt to complete a module other than the
// current one.
type OutOfOrderError struct {
	Claimed  int
	Expected int
}

func (e *OutOfOrderError) Error() string {
	return fmt.Sprintf("module %d completed out of order, expected module %d", e.Claimed, e.Expected)
}

// MarkCompleted records that the session's current module passed assessment
// and advances to the next. Completing any module other than the current one,
// or one outside 1..5, is rejected and leaves the session unchanged.
func MarkCompleted(s *Session, n int) error {
	if n < 1 || n > ModuleCount {
		return fmt.Errorf("module %d out of range", n)
	}
	if n != s.CurrentModule {
		return &OutOfOrderError{Claimed: n, Expected: s.CurrentModule}
	}
	if s.Completed == nil {
		s.Completed = make(map[int]bool)
	}
	s.Completed[n] = true
	s.CurrentModule = n + 1
	return nil
}

// CertificationOptions formats the certificate offer for a session's
// completed modules: per-module prices, plus the bulk price and savings when
// more than one module is eligible.
func CertificationOptions(s *Session) string {
	done := s.CompletedList()
	if len(done) == 0 {
		return "You have not completed any modules yet. Pass a module assessment first to unlock certificates."
	}

	var b []byte
	b = append(b, "🎓 Certification options:\n\n"...)
	for _, n := range done {
		title := ""
		if m := s.Curriculum.Module(n); m != nil && m.Title != "" {
			title = " — " + m.Title
		}
		b = append(b, fmt.Sprintf("• Module %d%s: ₹%d (send 'certify %d')\n", n, title, PriceSingle, n)...)
	}
	if len(done) > 1 {
		b = append(b, fmt.Sprintf("\n💰 All %d modules together: ₹%d (save ₹%d) — send 'certify all'\n",
			len(done), BulkPrice(len(done)), Savings(len(done)))...)
	}
	b = append(b, "\nOr send 'continue' to keep learning."...)
	return string(b)
}
