package internal

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"epaybg/config"
	"epaybg/entity"
	"epaybg/services"
)

const (
	collectionLog    = "payment_log"
	collectionOrders = "orders"
)

// MongoDB implements the order-store surface on top of the host shop's
// order collection. One short-lived connection per call, matching the low
// callback volume of a payment gateway.
type MongoDB struct {
	ctx              context.Context
	clientOptions    *options.ClientOptions
	database         string
	logRecordsNumber int64
}

func NewMongoClient(conf *config.Config) (*MongoDB, error) {
	if !conf.Mongo.Enabled {
		return nil, nil
	}
	connectionUri := fmt.Sprintf("mongodb://%s:%s", conf.Mongo.Host, conf.Mongo.Port)
	clientOptions := options.Client().ApplyURI(connectionUri)
	if conf.Mongo.User != "" {
		clientOptions.SetAuth(options.Credential{
			Username:   conf.Mongo.User,
			Password:   conf.Mongo.Password,
			AuthSource: conf.Mongo.Database,
		})
	}
	client := &MongoDB{
		ctx:              context.Background(),
		clientOptions:    clientOptions,
		database:         conf.Mongo.Database,
		logRecordsNumber: conf.LogRecords,
	}
	return client, nil
}

func (m *MongoDB) connect(ctx context.Context) (*mongo.Client, error) {
	connection, err := mongo.Connect(ctx, m.clientOptions)
	if err != nil {
		return nil, err
	}
	return connection, nil
}

func (m *MongoDB) disconnect(connection *mongo.Client) {
	if err := connection.Disconnect(m.ctx); err != nil {
		log.Println("mongodb disconnect error", err)
	}
}

func (m *MongoDB) orders(connection *mongo.Client) *mongo.Collection {
	return connection.Database(m.database).Collection(collectionOrders)
}

func (m *MongoDB) GetOrder(ctx context.Context, id int) (*entity.Order, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	filter := bson.D{{Key: "order_id", Value: id}}
	var order entity.Order
	if err = m.orders(connection).FindOne(ctx, filter).Decode(&order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (m *MongoDB) AddOrderNote(ctx context.Context, id int, note string) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	filter := bson.D{{Key: "order_id", Value: id}}
	update := bson.D{
		{Key: "$push", Value: bson.D{
			{Key: "notes", Value: note},
		}},
	}
	_, err = m.orders(connection).UpdateOne(ctx, filter, update)
	return err
}

// CompareAndSwapStatus replaces last_status only while the stored value
// still equals old. The filter carries the expected value, so the check
// and the write are one atomic operation on the server.
func (m *MongoDB) CompareAndSwapStatus(ctx context.Context, id int, old, new string) (bool, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return false, err
	}
	defer m.disconnect(connection)

	var statusFilter interface{} = old
	if old == "" {
		// orders the host created before any notification arrived may not
		// carry the field at all
		statusFilter = bson.M{"$in": bson.A{"", nil}}
	}
	filter := bson.D{{Key: "order_id", Value: id}, {Key: "last_status", Value: statusFilter}}
	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "last_status", Value: new},
		}},
	}
	result, err := m.orders(connection).UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return result.MatchedCount > 0, nil
}

func (m *MongoDB) MarkOrderPaid(ctx context.Context, id int, transactionRef, paidDate string) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	filter := bson.D{{Key: "order_id", Value: id}}
	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "is_paid", Value: true},
			{Key: "paid_date", Value: paidDate},
			{Key: "transaction_ref", Value: transactionRef},
		}},
	}
	_, err = m.orders(connection).UpdateOne(ctx, filter, update)
	return err
}

func (m *MongoDB) CancelOrder(ctx context.Context, id int, reason string) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	filter := bson.D{{Key: "order_id", Value: id}}
	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "is_cancelled", Value: true},
			{Key: "cancel_reason", Value: reason},
		}},
	}
	_, err = m.orders(connection).UpdateOne(ctx, filter, update)
	return err
}

func (m *MongoDB) SetEasyPayCode(ctx context.Context, id int, code *entity.EasyPayCode) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	filter := bson.D{{Key: "order_id", Value: id}}
	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "easypay", Value: code},
		}},
	}
	_, err = m.orders(connection).UpdateOne(ctx, filter, update)
	return err
}

func (m *MongoDB) ClearEasyPayCode(ctx context.Context, id int) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	filter := bson.D{{Key: "order_id", Value: id}}
	update := bson.D{
		{Key: "$unset", Value: bson.D{
			{Key: "easypay", Value: ""},
			{Key: "easypay_instructions_sent", Value: ""},
		}},
	}
	_, err = m.orders(connection).UpdateOne(ctx, filter, update)
	return err
}

// MarkInstructionsSent stamps the send time once; the filter only matches
// while the stamp is still missing, so redeliveries report false.
func (m *MongoDB) MarkInstructionsSent(ctx context.Context, id int) (bool, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return false, err
	}
	defer m.disconnect(connection)

	filter := bson.D{
		{Key: "order_id", Value: id},
		{Key: "easypay_instructions_sent", Value: bson.M{"$in": bson.A{nil, int64(0)}}},
	}
	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "easypay_instructions_sent", Value: time.Now().Unix()},
		}},
	}
	result, err := m.orders(connection).UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return result.MatchedCount > 0, nil
}

func (m *MongoDB) WriteLogMessage(data services.Data) error {
	connection, err := m.connect(m.ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(connection)
	collection := connection.Database(m.database).Collection(collectionLog)
	_, err = collection.InsertOne(m.ctx, data)
	return err
}
