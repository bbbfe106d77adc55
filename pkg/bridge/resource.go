package bridge

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/go-drift/nativeui/pkg/errors"
	"github.com/go-drift/nativeui/pkg/platform"
)

// Resource actions.
const (
	ActionLoadImage       = "loadImage"
	ActionLoadRemoteImage = "loadRemoteImage"
)

// maxRemoteImageBytes caps a remote image body.
const maxRemoteImageBytes = 32 << 20

// ImageStore holds decoded images under positive handles.
type ImageStore struct {
	mu     sync.RWMutex
	next   int
	images map[int]image.Image
}

// NewImageStore creates an empty store.
func NewImageStore() *ImageStore {
	return &ImageStore{images: make(map[int]image.Image)}
}

// Placeholder reserves a handle with no image yet.
func (s *ImageStore) Placeholder() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.images[s.next] = nil
	return s.next
}

// Add stores img under a new handle.
func (s *ImageStore) Add(img image.Image) int {
	h := s.Placeholder()
	s.Set(h, img)
	return h
}

// Set stores img under an existing handle.
func (s *ImageStore) Set(h int, img image.Image) {
	s.mu.Lock()
	if _, ok := s.images[h]; ok {
		s.images[h] = img
	}
	s.mu.Unlock()
}

// Release drops h and its image, if any.
func (s *ImageStore) Release(h int) {
	s.mu.Lock()
	delete(s.images, h)
	s.mu.Unlock()
}

// Get returns the image for h. ok is false for unknown handles and for
// placeholders that were never filled.
func (s *ImageStore) Get(h int) (img image.Image, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	img = s.images[h]
	return img, img != nil
}

// Len returns the number of reserved handles.
func (s *ImageStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.images)
}

// ResourceHandler serves the Resource namespace: images loaded from the
// application's files and downloaded from remote URLs.
type ResourceHandler struct {
	out     ScriptRunner
	files   fs.FS
	store   *ImageStore
	client  *http.Client
	timeout time.Duration
	logger  *zap.Logger
	metrics *Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewResourceHandler creates a handler reading local images from files and
// storing decoded images in store.
func NewResourceHandler(out ScriptRunner, files fs.FS, store *ImageStore, opts ...Option) *ResourceHandler {
	s := newSettings(opts)
	ctx, cancel := context.WithCancel(context.Background())
	return &ResourceHandler{
		out:     out,
		files:   files,
		store:   store,
		client:  s.httpClient,
		timeout: s.remoteTimeout,
		logger:  s.logger.Named("resources"),
		metrics: s.metrics,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Handle implements Handler.
func (h *ResourceHandler) Handle(msg Message) {
	switch msg.Action() {
	case ActionLoadImage:
		h.loadImage(msg.Param("imagePath"), msg.Param("imageID"))
	case ActionLoadRemoteImage:
		h.loadRemoteImage(msg.Param("imageURL"), msg.Param("imageID"))
	default:
		h.logger.Debug("unknown resource action", zap.String("action", msg.Action()))
	}
}

// loadImage decodes a local image and replies with imageLoaded. A failed
// load replies with handle -1.
func (h *ResourceHandler) loadImage(imagePath, imageID string) {
	handle := -1
	img, err := h.readImage(imagePath)
	if err != nil {
		h.metrics.resource(ActionLoadImage, "error")
		errors.Report(&errors.BridgeError{
			Op:        "bridge.ResourceHandler.loadImage",
			Kind:      errors.KindResource,
			Namespace: NamespaceResource,
			Action:    ActionLoadImage,
			Err:       err,
		})
	} else {
		handle = h.store.Add(img)
		h.metrics.resource(ActionLoadImage, "ok")
		h.logger.Debug("image loaded", zap.String("path", imagePath), zap.Int("handle", handle))
	}
	h.out.CallJS(imageLoadedScript(imageID, handle))
}

func (h *ResourceHandler) readImage(imagePath string) (image.Image, error) {
	if h.files == nil {
		return nil, fmt.Errorf("no local files for %q", imagePath)
	}
	name := path.Clean(strings.TrimPrefix(imagePath, "/"))
	data, err := fs.ReadFile(h.files, name)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %q: %w", imagePath, err)
	}
	return img, nil
}

// loadRemoteImage reserves a handle, replies with imageDownloadStarted, and
// downloads in the background. Completion is posted with platform.Dispatch
// and always replies with imageDownloadFinished, since the web layer sends
// its next queued download only after that call. A failed download releases
// the reserved handle and finishes with -1.
func (h *ResourceHandler) loadRemoteImage(imageURL, imageID string) {
	handle := h.store.Placeholder()
	h.out.CallJS(imageDownloadStartedScript(imageID, handle))

	h.wg.Add(1)
	h.metrics.downloads(1)
	go func() {
		defer h.wg.Done()
		defer h.metrics.downloads(-1)

		img, err := h.fetchImage(imageURL)
		finish := func() {
			result := handle
			if err != nil {
				h.store.Release(handle)
				result = -1
				h.metrics.resource(ActionLoadRemoteImage, "error")
				errors.Report(&errors.BridgeError{
					Op:        "bridge.ResourceHandler.loadRemoteImage",
					Kind:      errors.KindResource,
					Namespace: NamespaceResource,
					Action:    ActionLoadRemoteImage,
					Err:       err,
				})
			} else {
				h.store.Set(handle, img)
				h.metrics.resource(ActionLoadRemoteImage, "ok")
				h.logger.Debug("image downloaded", zap.String("url", imageURL), zap.Int("handle", handle))
			}
			h.out.CallJS(imageDownloadFinishedScript(result))
		}
		platform.DispatchOrRun(finish)
	}()
}

func (h *ResourceHandler) fetchImage(imageURL string) (image.Image, error) {
	ctx, cancel := context.WithTimeout(h.ctx, h.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: %s", imageURL, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteImageBytes))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", imageURL, err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", imageURL, err)
	}
	return img, nil
}

// Wait blocks until all downloads started so far have completed.
func (h *ResourceHandler) Wait() {
	h.wg.Wait()
}

// Close cancels in-flight downloads and waits for them to finish.
func (h *ResourceHandler) Close() {
	h.cancel()
	h.wg.Wait()
}
