package matching

import (
	"fmt"
	"time"

	"legalcosts-backend/models"
	"legalcosts-backend/registry"
)

// evaluate reports whether a fact satisfies a condition. A missing fact never
// satisfies anything.
func evaluate(c models.Condition, facts models.FactMap) (bool, error) {
	if msg := registry.ConditionProblem(c); msg != "" {
		return false, fmt.Errorf("%s", msg)
	}

	fact, ok := facts[c.Field]
	if !ok {
		return false, nil
	}

	switch c.Op {
	case models.OpPresent:
		return true, nil
	case models.OpEq:
		return equal(fact, c.Value), nil
	case models.OpNeq:
		return !equal(fact, c.Value), nil
	case models.OpIn:
		return member(fact, c.Values), nil
	case models.OpNotIn:
		return !member(fact, c.Values), nil
	case models.OpGte:
		bound := c.Min
		if bound == nil {
			bound = c.Value
		}
		cmp, ok := compare(fact, bound)
		return ok && cmp >= 0, nil
	case models.OpLte:
		bound := c.Max
		if bound == nil {
			bound = c.Value
		}
		cmp, ok := compare(fact, bound)
		return ok && cmp <= 0, nil
	case models.OpBetween:
		lo, okLo := compare(fact, c.Min)
		hi, okHi := compare(fact, c.Max)
		return okLo && okHi && lo >= 0 && hi <= 0, nil
	}
	return false, fmt.Errorf("unrecognized comparator %q", c.Op)
}

func member(fact interface{}, values []interface{}) bool {
	for _, v := range values {
		if equal(fact, v) {
			return true
		}
	}
	return false
}

func equal(a, b interface{}) bool {
	if an, ok := models.AsNumber(a); ok {
		bn, ok := models.AsNumber(b)
		return ok && an == bn
	}
	if at, ok := a.(time.Time); ok {
		bt, ok := models.AsDate(b)
		return ok && at.Equal(bt)
	}
	switch av := a.(type) {
	case string:
		if bt, ok := b.(time.Time); ok {
			at, ok := models.AsDate(av)
			return ok && at.Equal(bt)
		}
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}
	return false
}

// compare orders numbers numerically and dates chronologically. The second
// result is false when the two values are not comparable.
func compare(a, b interface{}) (int, bool) {
	if an, ok := models.AsNumber(a); ok {
		bn, ok := models.AsNumber(b)
		if !ok {
			return 0, false
		}
		switch {
		case an < bn:
			return -1, true
		case an > bn:
			return 1, true
		}
		return 0, true
	}

	at, ok := models.AsDate(a)
	if !ok {
		return 0, false
	}
	bt, ok := models.AsDate(b)
	if !ok {
		return 0, false
	}
	return at.Compare(bt), true
}
