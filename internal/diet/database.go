package diet

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/zombor/diet-tracker/internal/nutrition"
)

const (
	itemBucketName         = "items"
	settingsBucketName     = "settings"
	notificationBucketName = "notifications"

	targetsKey = "targets"
	budgetKey  = "weekly_budget"
)

// DB defines the interface for database operations
type DB interface {
	// SaveItem saves a food item to the database
	SaveItem(item *FoodItem) error

	// GetItem retrieves a food item by ID
	GetItem(id string) (*FoodItem, error)

	// ListItems returns all food items
	ListItems() ([]*FoodItem, error)

	// DeleteItem removes a food item from the database
	DeleteItem(id string) error

	// SaveTargets persists the daily nutrition targets
	SaveTargets(targets nutrition.Targets) error

	// GetTargets returns the saved targets; ok is false when none were saved
	GetTargets() (targets nutrition.Targets, ok bool, err error)

	// SaveBudget persists the weekly spending budget
	SaveBudget(budget float64) error

	// GetBudget returns the saved budget; ok is false when none was saved
	GetBudget() (budget float64, ok bool, err error)

	// SaveNotification saves or updates a notification
	SaveNotification(notification *Notification) error

	// ListNotifications returns all notifications
	ListNotifications() ([]*Notification, error)

	// DeleteNotifications removes all notifications
	DeleteNotifications() error

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{itemBucketName, settingsBucketName, notificationBucketName} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// SaveItem saves a food item to the database
func (b *BoltDB) SaveItem(item *FoodItem) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(itemBucketName))
		data, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("marshaling item: %w", err)
		}
		return bucket.Put([]byte(item.ID), data)
	})
}

// GetItem retrieves a food item by ID
func (b *BoltDB) GetItem(id string) (*FoodItem, error) {
	var item *FoodItem
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(itemBucketName))
		data := bucket.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("item not found: %s", id)
		}
		return json.Unmarshal(data, &item)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// ListItems returns all food items
func (b *BoltDB) ListItems() ([]*FoodItem, error) {
	items := make([]*FoodItem, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(itemBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var item FoodItem
			if err := json.Unmarshal(v, &item); err != nil {
				return fmt.Errorf("unmarshaling item: %w", err)
			}
			items = append(items, &item)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// DeleteItem removes a food item from the database
func (b *BoltDB) DeleteItem(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(itemBucketName))
		if bucket.Get([]byte(id)) == nil {
			return fmt.Errorf("item not found: %s", id)
		}
		return bucket.Delete([]byte(id))
	})
}

// SaveTargets persists the daily nutrition targets
func (b *BoltDB) SaveTargets(targets nutrition.Targets) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(settingsBucketName))
		data, err := json.Marshal(targets)
		if err != nil {
			return fmt.Errorf("marshaling targets: %w", err)
		}
		return bucket.Put([]byte(targetsKey), data)
	})
}

// GetTargets returns the saved targets; ok is false when none were saved
func (b *BoltDB) GetTargets() (nutrition.Targets, bool, error) {
	var targets nutrition.Targets
	found := false
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(settingsBucketName))
		data := bucket.Get([]byte(targetsKey))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &targets)
	})
	if err != nil {
		return nutrition.Targets{}, false, err
	}
	return targets, found, nil
}

// SaveBudget persists the weekly spending budget
func (b *BoltDB) SaveBudget(budget float64) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(settingsBucketName))
		data, err := json.Marshal(budget)
		if err != nil {
			return fmt.Errorf("marshaling budget: %w", err)
		}
		return bucket.Put([]byte(budgetKey), data)
	})
}

// GetBudget returns the saved budget; ok is false when none was saved
func (b *BoltDB) GetBudget() (float64, bool, error) {
	var budget float64
	found := false
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(settingsBucketName))
		data := bucket.Get([]byte(budgetKey))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &budget)
	})
	if err != nil {
		return 0, false, err
	}
	return budget, found, nil
}

// SaveNotification saves or updates a notification
func (b *BoltDB) SaveNotification(notification *Notification) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(notificationBucketName))
		data, err := json.Marshal(notification)
		if err != nil {
			return fmt.Errorf("marshaling notification: %w", err)
		}
		return bucket.Put([]byte(notification.ID), data)
	})
}

// ListNotifications returns all notifications
func (b *BoltDB) ListNotifications() ([]*Notification, error) {
	notifications := make([]*Notification, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(notificationBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var notification Notification
			if err := json.Unmarshal(v, &notification); err != nil {
				return fmt.Errorf("unmarshaling notification: %w", err)
			}
			notifications = append(notifications, &notification)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

// DeleteNotifications removes all notifications
func (b *BoltDB) DeleteNotifications() error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(notificationBucketName)); err != nil {
			return err
		}
		_, err := tx.CreateBucket([]byte(notificationBucketName))
		return err
	})
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
