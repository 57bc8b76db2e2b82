package seller

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"testing"

	"github.com/CyrilCartoux/watch-pros-sub002/internal/apperr"
	"github.com/CyrilCartoux/watch-pros-sub002/internal/imaging"
	"github.com/CyrilCartoux/watch-pros-sub002/internal/model"
	"github.com/CyrilCartoux/watch-pros-sub002/pkg/logger"
	"github.com/CyrilCartoux/watch-pros-sub002/pkg/mailer"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeStore struct {
	sellers   map[uuid.UUID]*model.Seller
	addresses map[uuid.UUID]*model.SellerAddress
	docs      map[uuid.UUID]model.SellerDocuments
	profiles  map[uuid.UUID]uuid.UUID
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sellers:   map[uuid.UUID]*model.Seller{},
		addresses: map[uuid.UUID]*model.SellerAddress{},
		docs:      map[uuid.UUID]model.SellerDocuments{},
		profiles:  map[uuid.UUID]uuid.UUID{},
	}
}

func (f *fakeStore) FindByID(_ context.Context, id uuid.UUID) (*model.Seller, error) {
	s, ok := f.sellers[id]
	if !ok {
		return nil, apperr.NotFound("seller not found")
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStore) FindByUserID(_ context.Context, userID uuid.UUID) (*model.Seller, error) {
	for _, s := range f.sellers {
		if s.UserID == userID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("seller not found")
}

func (f *fakeStore) EmailTaken(_ context.Context, email string) (bool, error) {
	for _, s := range f.sellers {
		if s.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) NameTaken(_ context.Context, name string) (bool, error) {
	for _, s := range f.sellers {
		if s.WatchProsName == name {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) CreateWithAddress(_ context.Context, s *model.Seller, addr *model.SellerAddress) error {
	cp := *s
	f.sellers[s.ID] = &cp
	addr.SellerID = s.ID
	f.addresses[s.ID] = addr
	return nil
}

func (f *fakeStore) UpdateDocuments(_ context.Context, id uuid.UUID, docs model.SellerDocuments) error {
	f.docs[id] = docs
	return nil
}

func (f *fakeStore) SetVerification(_ context.Context, id uuid.UUID, state string) error {
	s, ok := f.sellers[id]
	if !ok {
		return apperr.NotFound("seller not found")
	}
	s.IdentityVerified = state
	return nil
}

func (f *fakeStore) LinkProfile(_ context.Context, userID uuid.UUID, _ string, sellerID uuid.UUID) error {
	f.profiles[userID] = sellerID
	return nil
}

type fakeBlobs struct {
	objects map[string]string
	deleted []string
}

func (f *fakeBlobs) Upload(_ context.Context, bucket, path, contentType string, _ []byte) (string, error) {
	f.objects[bucket+"/"+path] = contentType
	return "https://cdn.test/" + bucket + "/" + path, nil
}

func (f *fakeBlobs) Delete(_ context.Context, bucket string, paths ...string) error {
	for _, p := range paths {
		f.deleted = append(f.deleted, bucket+"/"+p)
		delete(f.objects, bucket+"/"+p)
	}
	return nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	admin    []mailer.SellerInfo
	approved []mailer.SellerInfo
	declined []mailer.SellerInfo
	err      error
}

func (f *fakeNotifier) NotifyAdminNewSeller(_ context.Context, info mailer.SellerInfo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.admin = append(f.admin, info)
	return f.err
}

func (f *fakeNotifier) NotifySellerApproved(_ context.Context, info mailer.SellerInfo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.approved = append(f.approved, info)
	return f.err
}

func (f *fakeNotifier) NotifySellerDeclined(_ context.Context, info mailer.SellerInfo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.declined = append(f.declined, info)
	return f.err
}

type fixture struct {
	svc      *Service
	store    *fakeStore
	blobs    *fakeBlobs
	notifier *fakeNotifier
	ctx      context.Context
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		store:    newFakeStore(),
		blobs:    &fakeBlobs{objects: map[string]string{}},
		notifier: &fakeNotifier{},
		ctx:      logger.WithContext(context.Background(), zaptest.NewLogger(t)),
	}
	f.svc = NewService(f.store, f.blobs, f.notifier, imaging.New(300, 80), Config{DocumentsBucket: "sellerdocuments", MaxDocumentBytes: 1 << 20})
	return f
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 60, 40))
	for x := 0; x < 60; x++ {
		img.Set(x, x%40, color.Black)
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func validRequest(t *testing.T) RegisterRequest {
	return RegisterRequest{
		UserID:    uuid.New(),
		UserEmail: "owner@maisonh.fr",
		Account: Account{
			CompanyName:    "Maison Horlogere SAS",
			WatchProsName:  "maisonh",
			FirstName:      "Camille",
			LastName:       "Durand",
			Email:          "contact@maisonh.fr",
			Phone:          "+33 1 23 45 67 89",
			Country:        "France",
			CryptoFriendly: true,
		},
		Address: Address{
			Address:    "12 rue de la Paix",
			City:       "Paris",
			PostalCode: "75002",
			Country:    "France",
		},
		Documents: map[string]*File{
			DocIDCardFront:    {Filename: "front.png", ContentType: "image/png", Data: pngBytes(t)},
			DocIDCardBack:     {Filename: "back.png", ContentType: "image/png", Data: pngBytes(t)},
			DocProofOfAddress: {Filename: "bill.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.5 utility bill")},
			DocCompanyLogo:    {Filename: "logo.png", ContentType: "image/png", Data: pngBytes(t)},
		},
	}
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	req := validRequest(t)

	got, err := f.svc.Register(f.ctx, req)
	require.NoError(t, err)
	f.svc.Wait()

	assert.Equal(t, "maisonh", got.Username)
	seller := f.store.sellers[got.ID]
	require.NotNil(t, seller)
	assert.Equal(t, model.VerificationPending, seller.IdentityVerified)
	assert.Nil(t, seller.IBAN)
	assert.Equal(t, "Paris", f.store.addresses[got.ID].City)

	docs := f.store.docs[got.ID]
	prefix := "https://cdn.test/sellerdocuments/" + got.ID.String()
	assert.Equal(t, prefix+"/idCardFront.jpg", *docs.IDCardFront)
	assert.Equal(t, prefix+"/idCardBack.jpg", *docs.IDCardBack)
	assert.Equal(t, prefix+"/proofOfAddress.pdf", *docs.ProofOfAddress)
	assert.Equal(t, prefix+"/companyLogo.jpg", *docs.CompanyLogo)
	assert.Equal(t, "application/pdf", f.blobs.objects["sellerdocuments/"+got.ID.String()+"/proofOfAddress.pdf"])

	assert.Equal(t, got.ID, f.store.profiles[req.UserID])
	require.Len(t, f.notifier.admin, 1)
	assert.Equal(t, "maisonh", f.notifier.admin[0].WatchProsName)
}

func TestRegisterNotificationFailureIsNotReturned(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("smtp down")

	_, err := f.svc.Register(f.ctx, validRequest(t))
	require.NoError(t, err)
	f.svc.Wait()
	assert.Len(t, f.notifier.admin, 1)
}

func TestRegisterConflicts(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Register(f.ctx, validRequest(t))
	require.NoError(t, err)

	req := validRequest(t)
	req.Account.WatchProsName = "another"
	_, err = f.svc.Register(f.ctx, req)
	var e *apperr.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, apperr.KindConflict, e.Kind)
	assert.Equal(t, "email", e.Field)

	req = validRequest(t)
	req.Account.Email = "other@maisonh.fr"
	_, err = f.svc.Register(f.ctx, req)
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "watchProsName", e.Field)
	f.svc.Wait()
}

func TestRegisterTwiceForSameUser(t *testing.T) {
	f := newFixture(t)
	first := validRequest(t)
	_, err := f.svc.Register(f.ctx, first)
	require.NoError(t, err)

	again := validRequest(t)
	again.UserID = first.UserID
	again.Account.Email = "second@maisonh.fr"
	again.Account.WatchProsName = "maisonh-2"
	_, err = f.svc.Register(f.ctx, again)

	var e *apperr.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, apperr.KindConflict, e.Kind)
	assert.Equal(t, "user", e.Field)
	assert.Len(t, f.store.sellers, 1)
	f.svc.Wait()
}

func TestRegisterRejectsBadDocuments(t *testing.T) {
	cases := map[string]func(*RegisterRequest){
		DocIDCardBack:  func(r *RegisterRequest) { delete(r.Documents, DocIDCardBack) },
		DocCompanyLogo: func(r *RegisterRequest) { r.Documents[DocCompanyLogo].Data = bytes.Repeat([]byte{0x89}, 2<<20) },
		DocProofOfAddress: func(r *RegisterRequest) {
			r.Documents[DocProofOfAddress] = &File{Filename: "bill.txt", ContentType: "text/plain", Data: []byte("hello")}
		},
	}

	for kind, mutate := range cases {
		f := newFixture(t)
		req := validRequest(t)
		mutate(&req)

		_, err := f.svc.Register(f.ctx, req)
		var e *apperr.Error
		require.ErrorAs(t, err, &e, kind)
		assert.Equal(t, apperr.KindValidation, e.Kind, kind)
		assert.Equal(t, kind, e.Field)
		assert.Empty(t, f.store.sellers, "no seller row before documents are valid")
	}
}

func TestRegisterValidatesAccount(t *testing.T) {
	f := newFixture(t)
	req := validRequest(t)
	req.Account.Email = "not-an-email"

	_, err := f.svc.Register(f.ctx, req)
	var e *apperr.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, apperr.KindValidation, e.Kind)
	assert.Equal(t, "email", e.Field)
}

func TestRegisterUploadFailureKeepsEarlierDocuments(t *testing.T) {
	f := newFixture(t)
	req := validRequest(t)
	f.svc.blobs = &failingBlobs{fakeBlobs: f.blobs, suffix: "/proofOfAddress.pdf"}

	_, err := f.svc.Register(f.ctx, req)
	assert.True(t, apperr.Is(err, apperr.KindUpstream))

	require.Len(t, f.store.sellers, 1, "seller row stays")
	assert.Len(t, f.blobs.objects, 2, "front and back stay")
	require.Len(t, f.blobs.deleted, 1)
	assert.Contains(t, f.blobs.deleted[0], "/proofOfAddress.pdf")
	assert.Empty(t, f.store.docs)
	assert.Empty(t, f.store.profiles)
	assert.Empty(t, f.notifier.admin)
}

type failingBlobs struct {
	*fakeBlobs
	suffix string
}

func (f *failingBlobs) Upload(ctx context.Context, bucket, path, contentType string, data []byte) (string, error) {
	if strings.HasSuffix(path, f.suffix) {
		return "", errors.New("storage unavailable")
	}
	return f.fakeBlobs.Upload(ctx, bucket, path, contentType, data)
}

func TestReview(t *testing.T) {
	f := newFixture(t)
	got, err := f.svc.Register(f.ctx, validRequest(t))
	require.NoError(t, err)
	f.svc.Wait()

	s, err := f.svc.Approve(f.ctx, got.ID)
	require.NoError(t, err)
	assert.Equal(t, model.VerificationVerified, s.IdentityVerified)
	assert.Equal(t, model.VerificationVerified, f.store.sellers[got.ID].IdentityVerified)
	require.Len(t, f.notifier.approved, 1)
	assert.Equal(t, "contact@maisonh.fr", f.notifier.approved[0].Email)

	_, err = f.svc.Approve(f.ctx, got.ID)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	s, err = f.svc.Decline(f.ctx, got.ID, "ID card expired")
	require.NoError(t, err)
	assert.Equal(t, model.VerificationRejected, s.IdentityVerified)
	require.Len(t, f.notifier.declined, 1)
	assert.Equal(t, "ID card expired", f.notifier.declined[0].Reason)

	_, err = f.svc.Approve(f.ctx, uuid.New())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
