package apiclient

import "fmt"

// getResource performs a GET request to the given path and decodes the
// response data into a value of type T.
func getResource[T any](c *Client, path string) (*T, error) {
	var result T
	if err := c.get(path, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// listResources performs a GET request to the given path and decodes the
// response data into a slice of type T.
func listResources[T any](c *Client, path string) ([]T, error) {
	var results []T
	if err := c.get(path, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// resourcePath builds a resource path by formatting a path template with the
// given arguments.
func resourcePath(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}
