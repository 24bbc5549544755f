package store

import "fmt"

// NotFoundError reports an absence the caller may surface as an HTTP 404:
// an unknown namespace or collection, a collection whose items have all
// expired, a page index beyond the available chunks, or an unknown item id.
// The message distinguishes the cause; callers must not conflate them.
type NotFoundError struct {
	Status  int
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

func notFound(format string, args ...any) *NotFoundError {
	return &NotFoundError{Status: 404, Message: fmt.Sprintf(format, args...)}
}

func errNamespaceNotFound(namespace string) *NotFoundError {
	return notFound("Could not find namespace: %s", namespace)
}

func errNamespaceEmpty(namespace string) *NotFoundError {
	return notFound("No items available in namespace: %s", namespace)
}

func errCollectionNotFound(collection, namespace string) *NotFoundError {
	return notFound("Could not find collection: %s in %s", collection, namespace)
}

func errItemsExhausted(collection, namespace string) *NotFoundError {
	return notFound("Could not find items in collection: %s in %s", collection, namespace)
}

func errPageNotFound(page int) *NotFoundError {
	return notFound("Could not find page: %d", page)
}

func errItemNotFound(id, namespace string) *NotFoundError {
	return notFound("Could not find item: %s in %s", id, namespace)
}
