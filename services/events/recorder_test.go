package eventsvc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/elimu/core/course"
)

func TestNop_Publish(t *testing.T) {
	var pub course.Publisher = Nop{}
	for i := 0; i < 3; i++ {
		assert.NoError(t, pub.Publish(context.Background(), course.Event{Kind: course.EventQuizSubmitted}))
	}
}

func TestRecorder(t *testing.T) {
	rec := NewRecorder()
	ctx := context.Background()

	require.NoError(t, rec.Publish(ctx, course.Event{Kind: course.EventQuizSubmitted, LearnerID: "l1"}))
	require.NoError(t, rec.Publish(ctx, course.Event{Kind: course.EventCertificateIssued, LearnerID: "l1"}))
	assert.Equal(t, []course.EventKind{course.EventQuizSubmitted, course.EventCertificateIssued}, rec.Kinds())

	events := rec.Events()
	events[0].LearnerID = "changed"
	assert.Equal(t, "l1", rec.Events()[0].LearnerID)

	rec.Reset()
	assert.Empty(t, rec.Events())
}
