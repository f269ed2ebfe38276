package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"jarvis/app/client/intelligence"
	"jarvis/app/client/pipeline"
	"jarvis/app/client/storage"
	"jarvis/app/service/actions"
	"jarvis/app/service/dedup"
	"jarvis/app/service/pending"

	"github.com/stretchr/testify/require"
)

type fakeAnalyzer struct {
	configured bool
	result     *pipeline.Result
	err        error
	calls      int
}

func (f *fakeAnalyzer) Configured() bool {
	return f.configured
}

func (f *fakeAnalyzer) Process(_ context.Context, _ []byte, _, _ string) (*pipeline.Result, error) {
	f.calls++
	return f.result, f.err
}

type fakeUploader struct {
	uploads []string
	err     error
}

func (f *fakeUploader) Upload(_ context.Context, _ []byte, filename, _ string) (*storage.StoredObject, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.uploads = append(f.uploads, filename)
	return &storage.StoredObject{ID: "obj-1", Name: filename}, nil
}

type fakeContacts struct {
	linked [][2]string
}

func (f *fakeContacts) Link(_ context.Context, meetingID, contactID string) (string, error) {
	f.linked = append(f.linked, [2]string{meetingID, contactID})
	return "", nil
}

func (f *fakeContacts) Search(_ context.Context, _ string, _ int) ([]intelligence.Candidate, error) {
	return nil, nil
}

func (f *fakeContacts) Create(_ context.Context, _, _, _ string) (string, error) {
	return "", nil
}

type fixture struct {
	svc      *Service
	analyzer *fakeAnalyzer
	uploader *fakeUploader
	sessions *pending.Service
	registry *actions.Service
	contacts *fakeContacts
}

func newFixture(t *testing.T, analyzer *fakeAnalyzer) *fixture {
	t.Helper()

	dedupSvc, err := dedup.New(nil)
	require.NoError(t, err)

	registry, err := actions.New(nil)
	require.NoError(t, err)

	contacts := &fakeContacts{}
	sessions := pending.NewService(contacts)
	uploader := &fakeUploader{}

	return &fixture{
		svc:      NewService(dedupSvc, sessions, registry, analyzer, uploader),
		analyzer: analyzer,
		uploader: uploader,
		sessions: sessions,
		registry: registry,
		contacts: contacts,
	}
}

func successResult(matches []pipeline.Match, meetingIDs []string) *pipeline.Result {
	return &pipeline.Result{
		Status:  pipeline.StatusSuccess,
		Summary: "Met Jon about the quarterly report.",
		Details: pipeline.Details{
			TranscriptLength: 420,
			ContactMatches:   matches,
			MeetingIDs:       meetingIDs,
		},
	}
}

func voiceMessage() (User, Audio) {
	return User{ID: 7, Username: "alice"}, Audio{
		Kind:     KindVoice,
		FileID:   "file-1",
		Data:     []byte("opus"),
		MimeType: "audio/ogg",
	}
}

func TestIngest_DuplicateDroppedBeforeProcessing(t *testing.T) {
	f := newFixture(t, &fakeAnalyzer{configured: true, result: successResult(nil, nil)})
	user, audio := voiceMessage()

	first, err := f.svc.Ingest(context.Background(), user, audio)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, first.Status)

	second, err := f.svc.Ingest(context.Background(), user, audio)
	require.NoError(t, err)
	require.Equal(t, StatusDuplicate, second.Status)
	require.Equal(t, 1, f.analyzer.calls)
	require.Empty(t, f.uploader.uploads)
}

func TestIngest_NewAudioDiscardsOpenDialog(t *testing.T) {
	f := newFixture(t, &fakeAnalyzer{configured: true, result: successResult(nil, nil)})
	user, audio := voiceMessage()

	f.sessions.Start(user.ID, []pending.Reference{{MeetingID: "old", SearchedName: "Old"}})
	require.True(t, f.sessions.Has(user.ID))

	outcome, err := f.svc.Ingest(context.Background(), user, audio)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, outcome.Status)
	require.False(t, f.sessions.Has(user.ID), "prior session must be discarded")
}

func TestIngest_FastPathSuccessWithReferences(t *testing.T) {
	f := newFixture(t, &fakeAnalyzer{configured: true, result: successResult(
		[]pipeline.Match{{
			Matched:      false,
			MeetingID:    "m1",
			SearchedName: "Jon",
			Suggestions:  []pipeline.Suggestion{{ID: "c1", Name: "Jon Lee"}},
		}},
		nil,
	)})
	user, audio := voiceMessage()

	outcome, err := f.svc.Ingest(context.Background(), user, audio)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, outcome.Status)
	require.Equal(t, "Met Jon about the quarterly report.", outcome.Summary)
	require.Equal(t, 420, outcome.TranscriptLength)

	require.Contains(t, outcome.Prompt, `Who is "Jon"?`)
	require.NotContains(t, outcome.Prompt, "(1/1)")
	require.Contains(t, outcome.Prompt, "1 = Jon Lee")
	require.Contains(t, outcome.Prompt, "0 = Skip")

	// Link, create and skip buttons for the first reference.
	require.Len(t, outcome.Buttons, 3)
	action, ok := f.registry.Consume(outcome.Buttons[0].Token)
	require.True(t, ok)
	require.Equal(t, actions.KindLink, action.Kind)
	require.Equal(t, "m1", action.MeetingID)
	require.Equal(t, "c1", action.ContactID)

	require.True(t, f.sessions.Has(user.ID))
}

func TestIngest_MatchedReferencesProduceNoDialog(t *testing.T) {
	f := newFixture(t, &fakeAnalyzer{configured: true, result: successResult(
		[]pipeline.Match{{
			Matched:       true,
			SearchedName:  "Jon",
			LinkedContact: &pipeline.LinkedContact{Name: "Jon Lee"},
		}},
		nil,
	)})
	user, audio := voiceMessage()

	outcome, err := f.svc.Ingest(context.Background(), user, audio)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, outcome.Status)
	require.Empty(t, outcome.Prompt)
	require.Empty(t, outcome.Buttons)
	require.False(t, f.sessions.Has(user.ID))
}

func TestIngest_UnconfiguredFastPathGoesToStorage(t *testing.T) {
	f := newFixture(t, &fakeAnalyzer{configured: false})
	user, audio := voiceMessage()

	outcome, err := f.svc.Ingest(context.Background(), user, audio)
	require.NoError(t, err)
	require.Equal(t, StatusDeferred, outcome.Status)
	require.Equal(t, 0, f.analyzer.calls)
	require.Len(t, f.uploader.uploads, 1)
	require.Equal(t, f.uploader.uploads[0], outcome.StoredAs)
}

func TestIngest_FastPathErrorFallsBack(t *testing.T) {
	f := newFixture(t, &fakeAnalyzer{configured: true, err: errors.New("pipeline down")})
	user, audio := voiceMessage()

	outcome, err := f.svc.Ingest(context.Background(), user, audio)
	require.NoError(t, err)
	require.Equal(t, StatusDeferred, outcome.Status)
	require.Equal(t, 1, f.analyzer.calls, "no retries on the fast path")
}

func TestIngest_SemanticFailureFallsBack(t *testing.T) {
	f := newFixture(t, &fakeAnalyzer{configured: true, result: &pipeline.Result{Status: "error"}})
	user, audio := voiceMessage()

	outcome, err := f.svc.Ingest(context.Background(), user, audio)
	require.NoError(t, err)
	require.Equal(t, StatusDeferred, outcome.Status)
}

func TestIngest_StorageFailureIsFatal(t *testing.T) {
	f := newFixture(t, &fakeAnalyzer{configured: false})
	f.uploader.err = errors.New("bucket unavailable")
	user, audio := voiceMessage()

	_, err := f.svc.Ingest(context.Background(), user, audio)
	require.Error(t, err)
	require.Contains(t, err.Error(), "bucket unavailable")
}

func TestBuildFilename(t *testing.T) {
	f := newFixture(t, &fakeAnalyzer{})
	f.svc.now = func() time.Time {
		return time.Date(2026, 8, 25, 14, 30, 5, 0, time.UTC)
	}

	cases := []struct {
		name  string
		user  User
		audio Audio
		want  string
	}{
		{
			name:  "voice with username and mime",
			user:  User{ID: 7, Username: "alice"},
			audio: Audio{Kind: KindVoice, MimeType: "audio/ogg"},
			want:  "voice_20260825_143005_alice.ogg",
		},
		{
			name:  "voice without username falls back to id",
			user:  User{ID: 7},
			audio: Audio{Kind: KindVoice},
			want:  "voice_20260825_143005_7.ogg",
		},
		{
			name:  "audio without mime defaults to mp3",
			user:  User{ID: 7, Username: "alice"},
			audio: Audio{Kind: KindAudio},
			want:  "audio_20260825_143005_alice.mp3",
		},
		{
			name:  "mpeg maps to mp3",
			user:  User{ID: 7, Username: "alice"},
			audio: Audio{Kind: KindAudio, MimeType: "audio/mpeg"},
			want:  "audio_20260825_143005_alice.mp3",
		},
		{
			name:  "mime parameters are stripped",
			user:  User{ID: 7, Username: "alice"},
			audio: Audio{Kind: KindVoice, MimeType: "audio/ogg; codecs=opus"},
			want:  "voice_20260825_143005_alice.ogg",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, f.svc.buildFilename(tc.user, tc.audio))
		})
	}
}

func TestIngest_EndToEndDisambiguation(t *testing.T) {
	f := newFixture(t, &fakeAnalyzer{configured: true, result: successResult(
		[]pipeline.Match{{
			Matched:      false,
			MeetingID:    "m1",
			SearchedName: "Jon",
			Suggestions:  []pipeline.Suggestion{{ID: "c1", Name: "Jon Lee"}},
		}},
		nil,
	)})
	user, audio := voiceMessage()

	outcome, err := f.svc.Ingest(context.Background(), user, audio)
	require.NoError(t, err)
	require.Contains(t, outcome.Prompt, "1 = Jon Lee")
	require.Contains(t, outcome.Prompt, "0 = Skip")

	// The user picks candidate 1 by text reply.
	reply, err := f.sessions.HandleInput(context.Background(), user.ID, "1")
	require.NoError(t, err)
	require.Contains(t, reply, "Linked to Jon Lee")
	require.Equal(t, [][2]string{{"m1", "c1"}}, f.contacts.linked)
	require.False(t, f.sessions.Has(user.ID))
}

func TestCollectReferences_PositionalMeetingIDs(t *testing.T) {
	refs := collectReferences(pipeline.Details{
		ContactMatches: []pipeline.Match{
			{Matched: false, SearchedName: "Anna"},
			{Matched: true, SearchedName: "Known", MeetingID: "mX"},
			{Matched: false, SearchedName: "Boris", MeetingID: "own"},
			{Matched: false, SearchedName: "Clara"},
		},
		// Aligned with the unmatched entries only.
		MeetingIDs: []string{"m1", "m2", "m3"},
	})

	require.Len(t, refs, 3)
	require.Equal(t, "m1", refs[0].MeetingID)
	require.Equal(t, "own", refs[1].MeetingID, "explicit id wins over positional one")
	require.Equal(t, "m3", refs[2].MeetingID)
}
