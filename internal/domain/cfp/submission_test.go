package cfp

import "testing"

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to string }{
		{StatusDraft, StatusSubmitted},
		{StatusSubmitted, StatusUnderReview},
		{StatusSubmitted, StatusWithdrawn},
		{StatusUnderReview, StatusAccepted},
		{StatusUnderReview, StatusRejected},
		{StatusUnderReview, StatusWithdrawn},
	}
	for _, tr := range allowed {
		if !CanTransition(tr.from, tr.to) {
			t.Errorf("expected %s -> %s allowed", tr.from, tr.to)
		}
	}

	denied := []struct{ from, to string }{
		{StatusDraft, StatusAccepted},
		{StatusDraft, StatusUnderReview},
		{StatusSubmitted, StatusAccepted},
		{StatusAccepted, StatusRejected},
		{StatusRejected, StatusSubmitted},
		{StatusWithdrawn, StatusSubmitted},
		{StatusUnderReview, StatusDraft},
	}
	for _, tr := range denied {
		if CanTransition(tr.from, tr.to) {
			t.Errorf("expected %s -> %s denied", tr.from, tr.to)
		}
	}
}

func TestEditableAndReviewable(t *testing.T) {
	if !Editable(StatusDraft) || !Editable(StatusSubmitted) {
		t.Error("draft and submitted must be editable")
	}
	if Editable(StatusUnderReview) || Editable(StatusAccepted) {
		t.Error("under_review and accepted must not be editable")
	}
	if !Reviewable(StatusSubmitted) || !Reviewable(StatusUnderReview) {
		t.Error("submitted and under_review must be reviewable")
	}
	if Reviewable(StatusDraft) || Reviewable(StatusWithdrawn) {
		t.Error("draft and withdrawn must not be reviewable")
	}
}
