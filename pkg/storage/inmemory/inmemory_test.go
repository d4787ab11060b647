package inmemory_test

import (
	. "github.com/onsi/ginkgo/v2"

	"github.com/ecofes/lubebot/pkg/storage"
	"github.com/ecofes/lubebot/pkg/storage/inmemory"
	"github.com/ecofes/lubebot/pkg/storage/storagetest"
)

var _ = Describe("Driver", func() {
	storagetest.DescribeDriver(func() storage.Driver {
		return inmemory.NewDriver()
	})
})
