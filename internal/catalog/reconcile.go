package catalog

import "strings"

// Reconcile resolves subtab members against the products the backend
// returned. Matching members take their product with the membership's
// custom name and category applied over the originals. Members with no
// backend record become placeholders flagged IsMissing. The result follows
// membership order_index; inactive members are skipped.
func Reconcile(members []SubtabProduct, products []Product) []Product {
	byID := make(map[int64]Product, len(products))
	for _, p := range products {
		if _, ok := byID[p.RemonlineID]; !ok {
			byID[p.RemonlineID] = p
		}
	}

	ordered := OrderMembers(members)
	out := make([]Product, 0, len(ordered))
	for _, m := range ordered {
		if !m.IsActive {
			continue
		}
		p, ok := byID[m.ProductRemonlineID]
		if !ok {
			out = append(out, missingProduct(m))
			continue
		}
		out = append(out, applyMembership(p, m))
	}
	return out
}

func applyMembership(p Product, m SubtabProduct) Product {
	p.OriginalName = p.Name
	p.OriginalCategory = p.Category
	if name := trimmed(m.CustomName); name != "" {
		p.Name = name
		p.HasCustomName = true
	}
	if category := trimmed(m.CustomCategory); category != "" {
		p.Category = category
		p.HasCustomCategory = true
	}
	p.MembershipID = m.ID
	p.OrderIndex = m.OrderIndex
	return p
}

func missingProduct(m SubtabProduct) Product {
	p := Product{
		RemonlineID:  m.ProductRemonlineID,
		Name:         MissingName(m.ProductRemonlineID),
		IsMissing:    true,
		MembershipID: m.ID,
		OrderIndex:   m.OrderIndex,
		UpdatedAt:    ParseTimestamp(m.UpdatedAt),
	}
	if name := trimmed(m.CustomName); name != "" {
		p.Name = name
		p.HasCustomName = true
	}
	if category := trimmed(m.CustomCategory); category != "" {
		p.Category = category
		p.HasCustomCategory = true
	}
	return p
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// SplitMembers partitions products into those already in the subtab and the
// rest, keeping input order. Member ids without a product are returned as
// placeholders so the member list stays complete.
func SplitMembers(all []Product, members []SubtabProduct) (available []Product, current []Product) {
	memberIDs := make(map[int64]struct{}, len(members))
	for _, m := range members {
		memberIDs[m.ProductRemonlineID] = struct{}{}
	}
	for _, p := range all {
		if _, ok := memberIDs[p.RemonlineID]; ok {
			continue
		}
		available = append(available, p)
	}
	current = Reconcile(members, all)
	return available, current
}
